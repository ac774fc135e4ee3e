package main

import (
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/quchat/quchat/internal/api"
	"github.com/quchat/quchat/internal/client"
	"github.com/quchat/quchat/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	apiClient := api.NewClient(cfg)
	model := client.NewApp(cfg, apiClient)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("client exited: %v", err)
	}
}
