package config

import "fmt"

func NonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

func Positive(value int, envName string) error {
	if value <= 0 {
		return fmt.Errorf("env %s must be a positive integer", envName)
	}
	return nil
}
