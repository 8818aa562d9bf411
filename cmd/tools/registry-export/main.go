// cmd/tools/registry-export/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"startup-match-workers/pkg/registry"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportPath := exportCmd.String("path", "configs/activity-registry.json", "Path to registry file")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkPath := checkCmd.String("path", "configs/activity-registry.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		reg := buildRegistry(time.Now())
		if err := reg.Validate(); err != nil {
			fmt.Printf("Registry invalid: %v\n", err)
			os.Exit(1)
		}
		if err := registry.SaveRegistry(reg, *exportPath); err != nil {
			fmt.Printf("Error writing registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d activities to %s\n", len(reg.Activities), *exportPath)

	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		onDisk, err := registry.LoadRegistry(*checkPath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		if err := checkRegistry(onDisk, buildRegistry(time.Now())); err != nil {
			fmt.Printf("Registry check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry matches the compiled workers.")

	default:
		help()
	}
}

// checkRegistry reports task types that are served but undocumented, or documented but gone.
func checkRegistry(onDisk, built *registry.ActivityRegistry) error {
	if err := onDisk.Validate(); err != nil {
		return err
	}
	for _, a := range built.Activities {
		if _, ok := onDisk.Find(a.TaskType); !ok {
			return fmt.Errorf("task type %s is not documented", a.TaskType)
		}
	}
	for _, a := range onDisk.Activities {
		if _, ok := built.Find(a.TaskType); !ok {
			return fmt.Errorf("task type %s is documented but no worker serves it", a.TaskType)
		}
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-export <command> [flags]

Commands:
  export  Write the activity registry generated from the worker packages
  check   Compare a registry file against the worker packages

Examples:
  registry-export export -path configs/activity-registry.json
  registry-export check -path configs/activity-registry.json`)
}
