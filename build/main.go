package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

// goCmd runs a go subcommand with the build output attached to the terminal
func goCmd(a *goyek.A, args ...string) {
	a.Helper()
	a.Log("go", args)
	cmd := exec.CommandContext(a.Context(), "go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		goCmd(a, "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run the unit tests with the race detector",
	Action: func(a *goyek.A) {
		goCmd(a, "test", "-race", "-short", "./...")
	},
})

var build = goyek.Define(goyek.Task{
	Name:  "build",
	Usage: "Build the keechain-dist binary into bin/",
	Action: func(a *goyek.A) {
		version := os.Getenv("VERSION")
		if version == "" {
			version = "dev"
		}
		goCmd(a, "build", "-trimpath",
			"-ldflags", "-s -w -X main.Version="+version,
			"-o", "bin/keechain-dist", "./cmd/keechain-dist")
	},
})

var _ = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "Vet, test and build",
	Deps:  goyek.Deps{vet, test, build},
})

func main() {
	goyek.SetDefault(build)
	goyek.Main(os.Args[1:])
}
