package injector

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed assets/attacher.py
var attacherScript []byte

//go:embed assets/payload.py.tmpl
var payloadSource string

var payloadTemplate = template.Must(template.New("payload").Parse(payloadSource))

// Payload parameterises the debugpy bootstrap script.
type Payload struct {
	Port int
	// Wait makes the target block until a debugger attaches.
	Wait bool
}

// Render returns the Python source injected into the target process.
func (p Payload) Render() (string, error) {
	if p.Port <= 0 || p.Port > 65535 {
		return "", fmt.Errorf("invalid debug port %d", p.Port)
	}
	var buf bytes.Buffer
	if err := payloadTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render payload: %w", err)
	}
	return buf.String(), nil
}

// AttacherScript returns the embedded attacher source.
func AttacherScript() []byte {
	return attacherScript
}
