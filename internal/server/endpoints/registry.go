package endpoints

import (
	"github.com/promptlab/promptlab/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
		&CreatePromptEndpoint{},
		&UpdatePromptEndpoint{},
		&DeletePromptEndpoint{},

		// Model endpoints
		&ListModelsEndpoint{},
		&RefreshModelsEndpoint{},
		&ModelCacheEndpoint{},
		&ClearModelCacheEndpoint{},

		// Engine endpoints
		&OllamaHealthEndpoint{},
		&RefineEndpoint{},
		&TestPromptEndpoint{},

		// Session endpoints
		&GetSessionEndpoint{},
		&LoadSessionEndpoint{},
		&DiscardSessionEndpoint{},
		&EditSessionEndpoint{},
		&SaveSessionEndpoint{},
		&NavigateSessionEndpoint{},

		// Library endpoints
		&ExportLibraryEndpoint{},
		&ImportLibraryEndpoint{},

		// Config endpoint
		&GetConfigEndpoint{},
	}
}

// PromptCommands returns endpoints for prompt CRUD operations.
// This groups prompt-related commands under "prompts" subcommand.
func PromptCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
		&CreatePromptEndpoint{},
		&UpdatePromptEndpoint{},
		&DeletePromptEndpoint{},
	}
}

// ModelCommands returns endpoints for model operations.
func ModelCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListModelsEndpoint{},
		&RefreshModelsEndpoint{},
		&ModelCacheEndpoint{},
		&ClearModelCacheEndpoint{},
	}
}

// SessionCommands returns endpoints for working-prompt operations.
func SessionCommands() []api.Endpoint {
	return []api.Endpoint{
		&GetSessionEndpoint{},
		&LoadSessionEndpoint{},
		&DiscardSessionEndpoint{},
		&EditSessionEndpoint{},
		&SaveSessionEndpoint{},
		&NavigateSessionEndpoint{},
	}
}

// LibraryCommands returns endpoints for export and import operations.
func LibraryCommands() []api.Endpoint {
	return []api.Endpoint{
		&ExportLibraryEndpoint{},
		&ImportLibraryEndpoint{},
	}
}
