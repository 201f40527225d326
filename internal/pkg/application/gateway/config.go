package gateway

import (
	"io"

	yaml "gopkg.in/yaml.v2"
)

type GraphConfig struct {
	ID         string `yaml:"id"`
	Repository string `yaml:"repository"`
}

type Config struct {
	Endpoint string        `yaml:"endpoint"`
	Graphs   []GraphConfig `yaml:"graphs"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)

	return cfg, err
}
