package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

func run(a *goyek.A, name string, args ...string) {
	a.Helper()
	a.Log("exec:", name, args)
	cmd := exec.Command(name, args...)
	cmd.Stdout = a.Output()
	cmd.Stderr = a.Output()
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		run(a, "go", "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run unit tests (integration tests skipped)",
	Action: func(a *goyek.A) {
		run(a, "go", "test", "-short", "-race", "./...")
	},
})

var integration = goyek.Define(goyek.Task{
	Name:  "integration",
	Usage: "Run all tests including those that invoke git",
	Action: func(a *goyek.A) {
		run(a, "go", "test", "-race", "./...")
	},
})

var build = goyek.Define(goyek.Task{
	Name:  "build",
	Usage: "Build the ctictl binary into bin/",
	Action: func(a *goyek.A) {
		run(a, "go", "build", "-o", "bin/ctictl", "./cmd/ctictl")
	},
})

var all = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "vet, test and build",
	Deps:  goyek.Deps{vet, test, build},
})

func main() {
	goyek.SetDefault(all)
	goyek.Main(os.Args[1:])
}
