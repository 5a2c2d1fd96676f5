package util

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// GetenvOrDefault encapsulates os.Getenv but falls back to defaultValue when
// the key is unset or blank.
func GetenvOrDefault(key string, defaultValue string) string {
	str := os.Getenv(key)
	if strings.TrimSpace(str) == "" {
		return defaultValue
	}

	return str
}

// GetenvBoolOrDefault parses os.Getenv(key) as a bool, falling back to
// defaultValue if unset or unparsable.
func GetenvBoolOrDefault(key string, defaultValue bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return val
}

// GetenvIntOrDefault parses os.Getenv(key) as an int64, falling back to
// defaultValue if unset or unparsable.
func GetenvIntOrDefault(key string, defaultValue int64) int64 {
	val, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultValue
	}

	return val
}

var envConfigOnce sync.Once

// LoadLocalEnvFile loads a .env file once per process when ENV_NAME is
// "local", matching the convention the rest of the deployment tooling uses
// for every other environment (staging/prod inject real env vars).
func LoadLocalEnvFile() {
	envName := GetenvOrDefault("ENV_NAME", "local")
	if envName != "local" {
		return
	}

	envConfigOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			fmt.Println("skipping .env file, none found for env", envName)
		}
	})
}

// SetConfigFromEnvVars populates s (a pointer to a struct whose fields carry
// an `env:"KEY"` tag) from environment variables. Supports string, bool, and
// int kinds.
func SetConfigFromEnvVars(s any) error {
	v := reflect.ValueOf(s)

	t := v.Type()
	if t.Kind() != reflect.Ptr {
		return fmt.Errorf("util: SetConfigFromEnvVars requires a pointer, got %s", t.Kind())
	}

	e := t.Elem()
	for i := 0; i < e.NumField(); i++ {
		f := e.Field(i)

		tag, ok := f.Tag.Lookup("env")
		if !ok {
			continue
		}

		values := strings.Split(tag, ",")
		if len(values) == 0 {
			continue
		}

		fv := v.Elem().FieldByName(f.Name)
		if !fv.CanSet() {
			continue
		}

		switch fv.Kind() {
		case reflect.Bool:
			fv.SetBool(GetenvBoolOrDefault(values[0], false))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(GetenvIntOrDefault(values[0], 0))
		default:
			fv.SetString(os.Getenv(values[0]))
		}
	}

	return nil
}
