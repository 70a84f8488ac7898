package main

// Exit codes returned by skinrec commands.
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // No repository found, or the cache is missing
	ExitInvalidInput  = 3 // Invalid configuration or request options
	ExitDataError     = 4 // Malformed catalog data, or Ollama not available
	ExitModelNotFound = 5 // Embedding model not pulled
	ExitIndexNotFound = 6 // Product index missing; run 'skinrec embed'
)
