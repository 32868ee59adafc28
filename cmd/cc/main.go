// Command cc is the crucible compiler driver, wiring the lex/parse/resolve/
// generate/lower/legalize/emit pipeline into a single CLI binary with a stop
// flag at each stage.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"

	"github.com/dotslashrayva/crucible/pkg/asmir"
	"github.com/dotslashrayva/crucible/pkg/ast"
	"github.com/dotslashrayva/crucible/pkg/tac"
	"github.com/dotslashrayva/crucible/pkg/x86"
)

var Description = strings.ReplaceAll(`
crucible compiles a small subset of C to x86-64 assembly in Intel syntax for
macOS. It always preprocesses the input with clang first; without a stop flag
it also invokes clang again to assemble and link the result.
`, "\n", " ")

var App = cli.New(Description).
	WithArg(cli.NewArg("source", "The C source file to compile")).
	WithOption(cli.NewOption("lex", "Stop after lexing").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("parse", "Stop after parsing").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("validate", "Stop after semantic resolution").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("ir", "Stop after TAC generation").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("tacky", "Alias for --ir").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("codegen", "Stop after assembly IR construction").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("emit", "Stop after text emission, printing assembly to stdout").WithChar('S').WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	sourcePath := args[0]
	ext := filepath.Ext(sourcePath)
	base := strings.TrimSuffix(sourcePath, ext)

	preprocessedPath := base + ".i"
	if err := runClang("-E", "-P", sourcePath, "-o", preprocessedPath); err != nil {
		fmt.Printf("ERROR: clang failed to preprocess: %s\n", err)
		return -1
	}
	source, err := os.ReadFile(preprocessedPath)
	if err != nil {
		fmt.Printf("ERROR: unable to read preprocessed source: %s\n", err)
		return -1
	}
	os.Remove(preprocessedPath)

	tokens, err := ast.Lex(source)
	if err != nil {
		fmt.Printf("ERROR: lexical error: %s\n", err)
		return -1
	}
	if isSet(options, "lex") {
		fmt.Printf("%+v\n", tokens)
		fmt.Println("Lexer OK!")
		return 0
	}

	program, err := ast.Parse(tokens)
	if err != nil {
		fmt.Printf("ERROR: syntax error: %s\n", err)
		return -1
	}
	if isSet(options, "parse") {
		fmt.Printf("%+v\n", program)
		fmt.Println("Parser OK!")
		return 0
	}

	resolved, err := ast.Resolve(program)
	if err != nil {
		fmt.Printf("ERROR: semantic error: %s\n", err)
		return -1
	}
	if isSet(options, "validate") {
		fmt.Printf("%+v\n", resolved)
		fmt.Println("Validation OK!")
		return 0
	}

	ir, err := tac.Generate(resolved)
	if err != nil {
		fmt.Printf("ERROR: unable to complete IR generation: %s\n", err)
		return -1
	}
	if isSet(options, "ir") || isSet(options, "tacky") {
		fmt.Printf("%+v\n", ir)
		fmt.Println("IR OK!")
		return 0
	}

	lowered, err := asmir.Lower(ir)
	if err != nil {
		fmt.Printf("ERROR: unable to complete code generation: %s\n", err)
		return -1
	}
	legalized, err := asmir.Legalize(lowered)
	if err != nil {
		fmt.Printf("ERROR: unable to complete instruction legalization: %s\n", err)
		return -1
	}
	if isSet(options, "codegen") {
		fmt.Printf("%+v\n", legalized)
		fmt.Println("Code Generation OK!")
		return 0
	}

	assembly := x86.Emit(legalized)
	if isSet(options, "emit") {
		fmt.Println(assembly)
		fmt.Println("Code Emission OK!")
		return 0
	}

	asmPath := base + ".s"
	execPath := base
	if err := os.WriteFile(asmPath, []byte(assembly), 0644); err != nil {
		fmt.Printf("ERROR: unable to write assembly file: %s\n", err)
		return -1
	}

	if err := runClang("-target", "x86_64-apple-darwin", asmPath, "-o", execPath); err != nil {
		fmt.Printf("ERROR: clang failed to assemble and link: %s\n", err)
		return -1
	}
	os.Remove(asmPath)

	return 0
}

func runClang(args ...string) error {
	cmd := exec.Command("clang", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func isSet(options map[string]string, name string) bool {
	_, enabled := options[name]
	return enabled
}

func main() { os.Exit(App.Run(os.Args, os.Stdout)) }
