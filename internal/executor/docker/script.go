package docker

import (
	"github.com/sakif/classroom/internal/executor"
)

// workDir is the tmpfs mount inside every sandbox container.
const workDir = "/sandbox"

// plan is the per-language sequence of commands run inside a container.
// The source always arrives on stdin of the write step; nothing is
// interpolated into a shell string.
//
// Each container serves exactly one request, so fixed file names cannot
// collide and Java needs no class renaming here.
type plan struct {
	write   []string
	compile []string // nil for interpreted languages
	run     []string
}

func planFor(class executor.Class) (plan, bool) {
	switch class {
	case executor.Python:
		return plan{
			write: writeTo("main.py"),
			run:   []string{"sh", "-c", `exec python3 -c "$(cat ` + workDir + `/main.py)"`},
		}, true
	case executor.JavaScript:
		return plan{
			write: writeTo("main.js"),
			run:   []string{"sh", "-c", `exec node -e "$(cat ` + workDir + `/main.js)"`},
		}, true
	case executor.Rust:
		return plan{
			write:   writeTo("main.rs"),
			compile: []string{"rustc", workDir + "/main.rs", "-o", workDir + "/main"},
			run:     []string{workDir + "/main"},
		}, true
	case executor.Cpp:
		return plan{
			write:   writeTo("main.cpp"),
			compile: []string{"g++", workDir + "/main.cpp", "-o", workDir + "/main"},
			run:     []string{workDir + "/main"},
		}, true
	case executor.Java:
		return plan{
			write:   writeTo("Main.java"),
			compile: []string{"javac", "-d", workDir, workDir + "/Main.java"},
			run:     []string{"java", "-cp", workDir, "Main"},
		}, true
	}
	return plan{}, false
}

func writeTo(name string) []string {
	return []string{"sh", "-c", "cat > " + workDir + "/" + name}
}
