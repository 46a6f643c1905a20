package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	containerTypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var colorPalette = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgMagenta),
	color.New(color.FgRed),
}

// ComposeConfig is the subset of docker-compose.yml we care about
type ComposeConfig struct {
	Services map[string]interface{} `yaml:"services"`
}

func main() {
	composePath := flag.String("compose", "docker-compose.yml", "Path to the compose file")
	only := flag.String("only", "", "Stream only this service")
	flag.Parse()

	// 1. Setting up context for Graceful Shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutting down log streamer...")
		cancel()
	}()

	// 2. Initializing the Docker client
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		log.Fatalf("❌ Failed to create Docker client: %v", err)
	}
	defer func() {
		if err := cli.Close(); err != nil {
			log.Printf("⚠️  Error closing Docker client: %v", err)
		}
	}()

	// 3. Parsing the compose file to get service names
	composeFile, err := os.ReadFile(*composePath)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", *composePath, err)
	}

	var config ComposeConfig
	if err := yaml.Unmarshal(composeFile, &config); err != nil {
		log.Fatalf("❌ Failed to parse %s: %v", *composePath, err)
	}

	// 4. Run log streaming for each service in a separate goroutine
	var wg sync.WaitGroup
	i := 0
	log.Println("Starting log streams...")

	for serviceName := range config.Services {
		if *only != "" && serviceName != *only {
			continue
		}
		wg.Add(1)
		// Colors are assigned cyclically from the palette
		serviceColor := colorPalette[i%len(colorPalette)]
		go streamServiceLogs(ctx, &wg, cli, serviceName, serviceColor)
		i++
	}

	wg.Wait()
	log.Println("All log streams finished.")
}

func streamServiceLogs(ctx context.Context, wg *sync.WaitGroup, cli *client.Client, serviceName string, c *color.Color) {
	defer wg.Done()

	// Compose names containers <project>-<service>-1, so match on the
	// "com.docker.compose.service" label instead of the name.
	containers, err := cli.ContainerList(ctx, containerTypes.ListOptions{})
	if err != nil {
		log.Printf("⚠️  Error listing containers for %s: %v", serviceName, err)
		return
	}

	var containerID string
	for _, cont := range containers {
		if cont.Labels["com.docker.compose.service"] == serviceName {
			containerID = cont.ID
			break
		}
	}

	if containerID == "" {
		log.Printf("⚠️  Container for service %s not found.", serviceName)
		return
	}

	logReader, err := cli.ContainerLogs(ctx, containerID, containerTypes.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Timestamps: false,
	})
	if err != nil {
		log.Printf("⚠️  Error getting logs for %s: %v", serviceName, err)
		return
	}
	defer func() {
		if err := logReader.Close(); err != nil {
			log.Printf("⚠️  Error closing log reader for %s: %v", serviceName, err)
		}
	}()

	scanner := bufio.NewScanner(logReader)
	for scanner.Scan() {
		prefix := c.SprintfFunc()("[%s]", serviceName)
		fmt.Printf("%-25s %s\n", prefix, scanner.Text())
	}
}
