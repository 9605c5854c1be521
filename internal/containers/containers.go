package containers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"pidash/internal/models"
)

// Source lists local containers for the inventory endpoint. Implementations
// are best-effort: a failure surfaces as an error body, never as a crash.
type Source interface {
	List(ctx context.Context) (models.ContainerInventory, error)
}

// CLI shells out to the docker client. The daemon socket may be unreachable
// or the binary absent; both report as an unavailable inventory.
type CLI struct {
	// Binary overrides the docker executable name, for tests.
	Binary string
}

// NewCLI returns a docker-CLI backed source.
func NewCLI() *CLI {
	return &CLI{Binary: "docker"}
}

type dockerPSLine struct {
	ID        string `json:"ID"`
	Names     string `json:"Names"`
	Image     string `json:"Image"`
	State     string `json:"State"`
	CreatedAt string `json:"CreatedAt"`
}

// List returns all containers, running and stopped.
func (c *CLI) List(ctx context.Context) (models.ContainerInventory, error) {
	cmd := exec.CommandContext(ctx, c.Binary, "ps", "-a", "--format", "{{json .}}")
	out, err := cmd.Output()
	if err != nil {
		return models.ContainerInventory{}, fmt.Errorf("cannot connect to Docker daemon: %w", err)
	}

	inv := models.ContainerInventory{Containers: []models.Container{}}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row dockerPSLine
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return models.ContainerInventory{}, fmt.Errorf("parse docker output: %w", err)
		}
		inv.Containers = append(inv.Containers, models.Container{
			ID:      row.ID,
			Name:    row.Names,
			Image:   row.Image,
			Status:  row.State,
			Created: row.CreatedAt,
		})
		switch row.State {
		case "running":
			inv.Running++
		case "exited":
			inv.Stopped++
		}
	}
	if err := scanner.Err(); err != nil {
		return models.ContainerInventory{}, fmt.Errorf("read docker output: %w", err)
	}
	inv.Total = len(inv.Containers)
	return inv, nil
}
