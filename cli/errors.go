package cli

import "errors"

// Validation errors
var (
	ErrProfileNameRequired = errors.New("profile section must have a name")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrEnvFileNotFound     = errors.New("env file not found")
	ErrComposeFileMissing  = errors.New("compose file does not exist")
	ErrServiceNotDeclared  = errors.New("service not declared in compose file")
	ErrMountSourceMissing  = errors.New("mount source does not exist")
	ErrSetupFailed         = errors.New("setup command failed")
	ErrHealthCheckFailed   = errors.New("health check failed")
)
