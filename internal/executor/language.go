package executor

import (
	"sort"
	"strings"
)

// Class identifies one supported runtime family.
type Class string

const (
	Python     Class = "python"
	JavaScript Class = "javascript"
	Rust       Class = "rust"
	Cpp        Class = "cpp"
	Java       Class = "java"
)

// Strategy is how a class turns source into a running program.
type Strategy string

const (
	// Interpret passes the source inline to an interpreter.
	Interpret Strategy = "interpret"
	// Compile writes the source to disk, compiles it, then runs the artifact.
	Compile Strategy = "compile"
)

// Language describes one class: its display name, the spellings it accepts,
// its strategy and the file extension of its source artifact.
type Language struct {
	Class     Class    `json:"class"`
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases"`
	Strategy  Strategy `json:"strategy"`
	Extension string   `json:"extension,omitempty"`
}

var languages = []Language{
	{Class: Python, Name: "Python", Aliases: []string{"python", "python3"}, Strategy: Interpret},
	{Class: JavaScript, Name: "JavaScript", Aliases: []string{"javascript", "js", "node"}, Strategy: Interpret},
	{Class: Rust, Name: "Rust", Aliases: []string{"rust"}, Strategy: Compile, Extension: ".rs"},
	{Class: Cpp, Name: "C++", Aliases: []string{"c++", "cpp"}, Strategy: Compile, Extension: ".cpp"},
	{Class: Java, Name: "Java", Aliases: []string{"java"}, Strategy: Compile, Extension: ".java"},
}

// aliasIndex maps every accepted spelling to its language. Built once at init;
// read-only afterwards, so concurrent lookups need no locking.
var aliasIndex = func() map[string]Language {
	idx := make(map[string]Language)
	for _, l := range languages {
		for _, a := range l.Aliases {
			idx[a] = l
		}
	}
	return idx
}()

// Resolve maps a free-form language identifier to a supported language.
// Matching is case-insensitive and ignores surrounding whitespace.
func Resolve(name string) (Language, bool) {
	l, ok := aliasIndex[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

// Languages returns the supported languages, ordered by class name.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// UnsupportedMessage is the error text for a language no class accepts.
func UnsupportedMessage(name string) string {
	return "Unsupported language: " + name
}
