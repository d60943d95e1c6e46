package host

import "os"

// OSEnv reads the process environment.
type OSEnv struct{}

func (OSEnv) Get(name string) (string, error) {
	return os.Getenv(name), nil
}
