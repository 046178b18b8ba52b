// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Errors returned from services wrap the domain sentinels with goerr so
// adapters can map them with errors.Is while logs keep the attached values.
package services
