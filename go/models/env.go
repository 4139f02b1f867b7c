package models

import (
	"bufio"
	"bytes"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"github.com/xyproto/env/v2"
)

const envFileName = "env"

type MapEnv map[string]string

func (m MapEnv) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// ProcessEnv looks names up in the process environment, upper-cased and
// prefixed: "bootargs" becomes BOOTXNU_BOOTARGS, then BOOTARGS.
type ProcessEnv struct {
	Prefix string
}

func (p ProcessEnv) Get(name string) (string, bool) {
	key := strings.ToUpper(strings.Replace(name, "-", "_", -1))
	for _, k := range []string{p.Prefix + key, key} {
		if v := env.Str(k); v != "" {
			return v, true
		}
	}
	return "", false
}

// ChainEnv returns the first hit in order.
type ChainEnv []Env

func (c ChainEnv) Get(name string) (string, bool) {
	for _, e := range c {
		if e == nil {
			continue
		}
		if v, ok := e.Get(name); ok {
			return v, true
		}
	}
	return "", false
}

// ParseEnv reads a U-Boot style environment: one name=value per line, # comments.
func ParseEnv(p []byte) (MapEnv, error) {
	ret := make(MapEnv)
	s := bufio.NewScanner(bytes.NewReader(p))
	lineno := 0
	for s.Scan() {
		lineno++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		split := strings.SplitN(line, "=", 2)
		if len(split) != 2 || strings.TrimSpace(split[0]) == "" {
			return nil, errors.Errorf("env line %d: expected name=value, got %q", lineno, line)
		}
		ret[strings.TrimSpace(split[0])] = strings.TrimSpace(split[1])
	}
	return ret, errors.Wrap(s.Err(), "failed to read env")
}

func LoadEnvFile(path string) (MapEnv, error) {
	p, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read env file")
	}
	return ParseEnv(p)
}

// FindEnvFile loads the first "env" file in the bootxnu config folders.
// Returns an empty env when there is none.
func FindEnvFile() (MapEnv, error) {
	configDirs := configdir.New("bootxnu", "")
	config := configDirs.QueryFolderContainsFile(envFileName)
	if config == nil {
		return MapEnv{}, nil
	}
	p, err := config.ReadFile(envFileName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s env", config.Path)
	}
	return ParseEnv(p)
}
