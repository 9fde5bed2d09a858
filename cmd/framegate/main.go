// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/wingedpig/framegate/internal/app"
	"github.com/wingedpig/framegate/internal/config"
)

var (
	version = "0.3"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var (
		configPath  string
		host        string
		port        int
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("framegate %s\n", version)
		os.Exit(0)
	}

	if configPath == "" {
		loader := config.NewLoader()
		found, err := loader.FindConfig()
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		configPath = found
	}

	log.Printf("Using config: %s", configPath)

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	if err := application.Run(ctx); err != nil {
		log.Fatalf("App error: %v", err)
	}
}

// runInit handles the "framegate init" command
func runInit() error {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	initFlags.Parse(os.Args[2:])

	if *showHelp {
		fmt.Println(`Usage: framegate init [options]

Create a new framegate.hjson configuration file in the current directory.

This command walks you through the settings the service needs before it
can drive a renderer: where the renderer lives, where it writes output,
and which directory holds the input images.

Options:
  -h, -help    Show this help message

After running init:
  1. Review and edit framegate.hjson as needed
  2. Run: ./framegate
  3. Open: http://localhost:8188`)
		return nil
	}

	configFile := "framegate.hjson"

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Framegate Configuration Setup")
	fmt.Println("=============================")
	fmt.Println()
	fmt.Println("This will create a framegate.hjson configuration file in the current directory.")
	fmt.Println("Press Enter to accept defaults shown in [brackets].")
	fmt.Println()

	portStr := prompt(reader, "Server port", "8188")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 8188
	}

	command := prompt(reader, "Renderer command", "python3 server.py")
	workDir := prompt(reader, "Renderer working directory", ".")
	outputDir := prompt(reader, "Output directory", "./output")
	imagesDir := prompt(reader, "Input images directory", "./images")

	configContent := generateConfig(port, command, workDir, outputDir, imagesDir)

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println()
	fmt.Printf("Created %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit framegate.hjson as needed")
	fmt.Println("  2. Run: ./framegate")
	fmt.Println("  3. Open: http://localhost:" + strconv.Itoa(port))
	fmt.Println()

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func generateConfig(port int, command, workDir, outputDir, imagesDir string) string {
	var sb strings.Builder

	sb.WriteString(`{
  // ===========================================================================
  // Framegate Configuration
  // ===========================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).

  // ---------------------------------------------------------------------------
  // HTTP server
  // ---------------------------------------------------------------------------
  server: {
    host: "127.0.0.1"
    port: ` + strconv.Itoa(port) + `
    // tls_cert: "~/certs/framegate.pem"
    // tls_key: "~/certs/framegate-key.pem"
  }

  // ---------------------------------------------------------------------------
  // Renderer child process
  // ---------------------------------------------------------------------------
  renderer: {
    // The command is split on configuration, not by a shell.
    command: [`)

	for i, part := range strings.Fields(command) {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(`"` + escapeHJSONValue(part) + `"`)
	}

	sb.WriteString(`]
    work_dir: "` + escapeHJSONValue(workDir) + `"
    output_dir: "` + escapeHJSONValue(outputDir) + `"
    // config_path: "configs/inference_yaml/inference_universal.yaml"
    // checkpoint_path: "models/base_distilled_model/base_distill.safetensors"
    // pretrained_dir: "models/pretrained"
    seed: 42
    stop_timeout: "5s"
  }

  // ---------------------------------------------------------------------------
  // Prompt/answer bridge
  // ---------------------------------------------------------------------------
  bridge: {
    poll_interval: "10ms"
    queue_size: 256
    log_buffer_size: 400
    // "path" writes the full image path to the renderer, "name" just
    // the filename (for renderers that chdir into the image dir).
    send_image: "path"
    // Extra prompt phrasings, merged with the built-in defaults:
    // prompts: { image: [], primary: [], secondary: [] }
  }

  // ---------------------------------------------------------------------------
  // Output artifacts
  // ---------------------------------------------------------------------------
  artifacts: {
    current_name: "current.mp4"
    extensions: [".mp4", ".webm", ".png", ".jpg"]
    debounce: "100ms"
  }

  // ---------------------------------------------------------------------------
  // Input images
  // ---------------------------------------------------------------------------
  images: {
    dir: "` + escapeHJSONValue(imagesDir) + `"
    // default: "start.png"
    extensions: [".png", ".jpg", ".jpeg", ".webp"]
  }

  // ---------------------------------------------------------------------------
  // Event history
  // ---------------------------------------------------------------------------
  events: {
    history: {
      max_events: 1000
      max_age: "1h"
    }
  }
}
`)

	return sb.String()
}
