package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ParseTOML decodes a TOML definition. Unknown keys are rejected.
func ParseTOML(data []byte) (*Definition, error) {
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("phase=parse path=<doc>: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("phase=parse path=%s: unknown key", undecoded[0])
	}
	return build(f)
}

// ParseYAML decodes a YAML definition. Unknown keys are rejected.
func ParseYAML(data []byte) (*Definition, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("phase=parse path=<doc>: empty YAML")
		}
		return nil, fmt.Errorf("phase=parse path=<doc>: %w", err)
	}
	return build(f)
}
