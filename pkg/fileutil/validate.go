package fileutil

import (
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/conductor/internal/errors"
)

// ErrValidation indicates content was refused because it does not parse
// as the format implied by the target's extension.
var ErrValidation = errors.New("refusing to write invalid content")

// Validate checks that data parses as the format implied by path's
// extension. JSON is checked leniently (comments and trailing commas are
// accepted) since VS Code and Zed settings are JSONC. Unknown extensions
// pass.
func Validate(path string, data []byte) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		_, err = hujson.Parse(data)
	case ".toml":
		var v map[string]any
		err = toml.Unmarshal(data, &v)
	case ".yaml", ".yml":
		var v any
		err = yaml.Unmarshal(data, &v)
	case ".xml":
		err = validateXML(data)
	default:
		return nil
	}
	if err != nil {
		return errors.Wrapf(ErrValidation, "%s: %v", filepath.Base(path), err)
	}
	return nil
}

func validateXML(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	sawElement := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawElement = true
		}
	}
	if !sawElement {
		return errors.New("no root element")
	}
	return nil
}
