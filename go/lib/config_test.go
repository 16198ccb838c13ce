package lib

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"
)

type engineConfig struct {
	BaseConfig `mapstructure:",squash"`

	Task      string
	Consensus struct {
		GoldThreshold    float64 `mapstructure:"gold_threshold"`
		AnnotatorsPerDoc int     `mapstructure:"annotators_per_doc"`
	}
	BlocklistPath string `mapstructure:"blocklist_path"`
}

var configFile string

func TestMain(m *testing.M) {
	filename, err := writeConfig(map[string]interface{}{
		"task": "entities_and_relations",
		"consensus": map[string]interface{}{
			"gold_threshold":     0.8,
			"annotators_per_doc": 3,
		},
		"log_level": "info",
	}, "annotation-api-*.yml")
	if err != nil {
		panic(err)
	}
	configFile = filename

	code := m.Run()
	os.Remove(filename)
	os.Exit(code)
}

func writeConfig(values map[string]interface{}, pattern string) (string, error) {
	file, err := ioutil.TempFile(".", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := yaml.Marshal(&values)
	if err != nil {
		return "", err
	}
	if _, err := file.Write(data); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
}

func TestInitializeConfig_file(t *testing.T) {
	resetFlags()

	var conf engineConfig
	err := InitializeConfig(configFile, map[string]interface{}{}, &conf)

	assert.NoError(t, err)
	assert.Equal(t, "entities_and_relations", conf.Task)
	assert.Equal(t, 0.8, conf.Consensus.GoldThreshold)
	assert.Equal(t, 3, conf.Consensus.AnnotatorsPerDoc)
}

func TestInitializeConfig_env_overrides_file(t *testing.T) {
	resetFlags()
	os.Setenv("TASK", "entities")
	os.Setenv("CONSENSUS_GOLD_THRESHOLD", "0.5")
	os.Setenv("BLOCKLIST_PATH", "/etc/blocklist.yml")
	defer func() {
		os.Unsetenv("TASK")
		os.Unsetenv("CONSENSUS_GOLD_THRESHOLD")
		os.Unsetenv("BLOCKLIST_PATH")
	}()

	var conf engineConfig
	err := InitializeConfig(configFile, map[string]interface{}{}, &conf)

	assert.NoError(t, err)
	assert.Equal(t, "entities", conf.Task)
	assert.Equal(t, 0.5, conf.Consensus.GoldThreshold)
	assert.Equal(t, 3, conf.Consensus.AnnotatorsPerDoc)

	// viper only reads env vars for keys it already knows about
	assert.Equal(t, "", conf.BlocklistPath)
}

func TestInitializeConfig_defaults(t *testing.T) {
	resetFlags()
	os.Setenv("BLOCKLIST_PATH", "/etc/blocklist.yml")
	defer os.Unsetenv("BLOCKLIST_PATH")

	var conf engineConfig
	err := InitializeConfig(configFile, map[string]interface{}{
		"blocklist_path": "",
	}, &conf)

	assert.NoError(t, err)
	assert.Equal(t, "/etc/blocklist.yml", conf.BlocklistPath, "a default makes the key known to viper")
}

func TestInitializeConfig_flag(t *testing.T) {
	resetFlags()

	filename, err := writeConfig(map[string]interface{}{"task": "entities"}, "override-*.yml")
	if err != nil {
		panic(err)
	}
	defer os.Remove(filename)

	args := os.Args
	os.Args = []string{args[0], "--" + configFlag, filename}
	defer func() { os.Args = args }()

	var conf engineConfig
	err = InitializeConfig(configFile, map[string]interface{}{}, &conf)

	assert.NoError(t, err)
	assert.Equal(t, "entities", conf.Task)
}

func TestBaseDefaults(t *testing.T) {
	defaults := BaseDefaults(map[string]interface{}{"backend": "local"})
	assert.Equal(t, "info", defaults["log_level"])
	assert.Equal(t, "local", defaults["backend"])

	defaults = BaseDefaults(map[string]interface{}{"log_level": "debug"})
	assert.Equal(t, "debug", defaults["log_level"])
}

func TestInitializeConfig_log_level(t *testing.T) {
	resetFlags()
	os.Setenv("LOG_LEVEL", "warn")
	defer os.Unsetenv("LOG_LEVEL")

	var conf engineConfig
	err := InitializeConfig(configFile, BaseDefaults(nil), &conf)
	assert.NoError(t, err)
	assert.Equal(t, "warn", conf.LogLevel)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	resetFlags()
	os.Setenv("LOG_LEVEL", "loud")
	err = InitializeConfig(configFile, BaseDefaults(nil), &conf)
	assert.Error(t, err)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
