package licenseserver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"license-agent/core/models"
	"license-agent/core/reconcile"
)

var (
	// ErrUnknownServerType is returned for a server type without a parser.
	ErrUnknownServerType = errors.New("unknown license server type")
	// ErrInvalidServer is returned for hosts or ports that cannot be put on a command line.
	ErrInvalidServer = errors.New("invalid license server address")
)

var validHost = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]*$`)

// Adapter queries one license server family with a configured command template.
type Adapter struct {
	serverType models.ServerType
	command    *template.Template
	parser     Parser
}

// NewAdapter compiles commandTemplate for the given server type.
// The template sees the license server as {{.Host}} and {{.Port}}.
func NewAdapter(t models.ServerType, commandTemplate string) (*Adapter, error) {
	parser, ok := Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownServerType, t)
	}
	tmpl, err := template.New(string(t)).Option("missingkey=error").Parse(commandTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse %s command template: %w", t, err)
	}
	return &Adapter{serverType: t, command: tmpl, parser: parser}, nil
}

// NewAdapters builds one adapter per configured template, in a stable order.
func NewAdapters(templates map[models.ServerType]string) ([]reconcile.Adapter, error) {
	for t := range templates {
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownServerType, t)
		}
	}

	var adapters []reconcile.Adapter
	for _, t := range models.ServerTypes {
		tmpl, ok := templates[t]
		if !ok {
			continue
		}
		a, err := NewAdapter(t, tmpl)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func (a *Adapter) ServerType() models.ServerType {
	return a.serverType
}

// Command renders the query command for server.
func (a *Adapter) Command(server models.LicenseServer) (string, error) {
	if !validHost.MatchString(server.Host) {
		return "", fmt.Errorf("%w: host %q", ErrInvalidServer, server.Host)
	}
	if server.Port < 1 || server.Port > 65535 {
		return "", fmt.Errorf("%w: port %d", ErrInvalidServer, server.Port)
	}
	var sb strings.Builder
	if err := a.command.Execute(&sb, server); err != nil {
		return "", fmt.Errorf("render %s command: %w", a.serverType, err)
	}
	return sb.String(), nil
}

func (a *Adapter) Parse(raw string) *models.ServerReport {
	return a.parser.Parse(raw)
}
