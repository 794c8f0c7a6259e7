package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/genialabs/conduit/pkg/connector/core"
)

// credentialFile is the YAML shape of a local credential file:
//
//	credentials:
//	  - user_id: default
//	    platform: facebook
//	    access_token: ${FACEBOOK_TOKEN}
//	    page_id: "1234"
type credentialFile struct {
	Credentials []core.Credential `yaml:"credentials"`
}

// LoadFile reads credentials from a YAML file. ${VAR} references resolve
// against the environment so secrets stay out of the file. Unknown keys fail
// the load, catching a misspelled field before it silently drops a secret.
func LoadFile(path string) ([]core.Credential, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the --credentials flag
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)

	var file credentialFile
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}

	for i := range file.Credentials {
		if err := validate(&file.Credentials[i]); err != nil {
			return nil, fmt.Errorf("credential %d in %s: %w", i, path, err)
		}
	}

	return file.Credentials, nil
}
