package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks a configuration that fails Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a failure reading the YAML file or environment.
	ErrLoadConfig = errors.New("load config failed")
	// ErrUnknownDriver is an ErrInvalidConfig naming an unsupported storage_driver.
	ErrUnknownDriver = fmt.Errorf("%w: unknown storage_driver", ErrInvalidConfig)
)
