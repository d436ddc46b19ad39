package endpoints

import (
	"github.com/jackzampolin/primer/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Document endpoints
		&IngestEndpoint{},
		&ListDocumentsEndpoint{},
		&GetDocumentEndpoint{},
		&ListPagesEndpoint{},
		&GetPageEndpoint{},

		// Pipeline endpoints
		&ProcessPageEndpoint{},
		&ProcessDocumentEndpoint{},
		&FinalizeEndpoint{},

		// Unit endpoints
		&ListUnitsEndpoint{},
		&GetUnitEndpoint{},
		&ApproveUnitEndpoint{},
		&RejectUnitEndpoint{},
		&RegenerateUnitEndpoint{},

		// Index endpoints
		&GetIndexEndpoint{},
		&RebuildIndexEndpoint{},
		&GetPageIndexEndpoint{},

		// Job endpoints
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&CancelJobEndpoint{},

		// LLM call history
		&ListLLMCallsEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
	}
}

// DocumentCommands groups document CRUD commands under "documents".
func DocumentCommands() []api.Endpoint {
	return []api.Endpoint{
		&IngestEndpoint{},
		&ListDocumentsEndpoint{},
		&GetDocumentEndpoint{},
		&ListPagesEndpoint{},
		&GetPageEndpoint{},
		&FinalizeEndpoint{},
		&ListLLMCallsEndpoint{},
	}
}

// ProcessCommands groups pipeline-run commands under "process".
func ProcessCommands() []api.Endpoint {
	return []api.Endpoint{
		&ProcessPageEndpoint{},
		&ProcessDocumentEndpoint{},
	}
}

// UnitCommands groups unit inspection and review commands under "units".
func UnitCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListUnitsEndpoint{},
		&GetUnitEndpoint{},
		&ApproveUnitEndpoint{},
		&RejectUnitEndpoint{},
		&RegenerateUnitEndpoint{},
	}
}

// IndexCommands groups index commands under "index".
func IndexCommands() []api.Endpoint {
	return []api.Endpoint{
		&GetIndexEndpoint{},
		&RebuildIndexEndpoint{},
		&GetPageIndexEndpoint{},
	}
}

// JobCommands groups job commands under "jobs".
func JobCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&CancelJobEndpoint{},
	}
}

// PromptCommands groups prompt commands under "prompts".
func PromptCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
	}
}
