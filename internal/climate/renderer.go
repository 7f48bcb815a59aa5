package climate

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

// Template names, one per outcome tag.
const (
	tmplSetTemperature    = "set_temperature"
	tmplSetMode           = "set_mode"
	tmplTurnOn            = "turn_on"
	tmplTurnOff           = "turn_off"
	tmplGroup             = "group"
	tmplNotFound          = "not_found"
	tmplAmbiguous         = "ambiguous"
	tmplOutOfRange        = "out_of_range"
	tmplUnsupportedAction = "unsupported_action"
	tmplUnsupportedMode   = "unsupported_mode"
	tmplInvalidParameter  = "invalid_parameter"
	tmplDispatchTimeout   = "dispatch_timeout"
	tmplDispatchFailed    = "dispatch_failed"
	tmplHelp              = "help"
	tmplUnknownIntent     = "unknown_intent"
	tmplGenericFailure    = "generic_failure"
)

// TemplateNames lists every template a Renderer must define.
var TemplateNames = []string{
	tmplSetTemperature, tmplSetMode, tmplTurnOn, tmplTurnOff, tmplGroup,
	tmplNotFound, tmplAmbiguous, tmplOutOfRange, tmplUnsupportedAction,
	tmplUnsupportedMode, tmplInvalidParameter, tmplDispatchTimeout,
	tmplDispatchFailed, tmplHelp, tmplUnknownIntent, tmplGenericFailure,
}

// fallbackText is used if even the generic failure template cannot render.
const fallbackText = "Sorry, I couldn't process your request."

// Renderer produces reply text from outcome templates.
// Template selection depends only on the outcome tag.
type Renderer struct {
	tmpl *template.Template
}

var templateFuncs = template.FuncMap{
	"list": naturalList,
}

// NewRenderer parses the built-in templates, then any <name>.tmpl files in
// overrideDir (which may be empty) in their place. Every template in
// TemplateNames must end up defined.
func NewRenderer(overrideDir string) (*Renderer, error) {
	root := template.New("responses").Funcs(templateFuncs)
	if err := parseFS(root, builtinTemplates, "templates"); err != nil {
		return nil, err
	}

	if overrideDir != "" {
		if err := parseFS(root, os.DirFS(overrideDir), "."); err != nil {
			return nil, fmt.Errorf("loading template overrides from %s: %w", overrideDir, err)
		}
	}

	for _, name := range TemplateNames {
		if root.Lookup(name) == nil {
			return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, name)
		}
	}
	return &Renderer{tmpl: root}, nil
}

// parseFS defines one template per .tmpl file, named after the file.
func parseFS(root *template.Template, fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("reading templates: %w", err)
	}
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".tmpl")
		if e.IsDir() || !ok {
			continue
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("reading template %s: %w", e.Name(), err)
		}
		if _, err := root.New(name).Parse(string(body)); err != nil {
			return fmt.Errorf("parsing template %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Render executes the named template.
func (r *Renderer) Render(name string, data any) (string, error) {
	var b strings.Builder
	if err := r.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// view is the data every template receives.
type view struct {
	Device      string
	Room        string
	Kind        string
	Value       string
	Mode        string
	Phrase      string
	Candidates  []string
	Action      string
	ActionLabel string
	Requested   string
	Bound       string
	Limit       string
	Modes       []string

	RoomHint          string
	RoomHintUnmatched bool

	// Group replies.
	Summary   string
	Succeeded int
	Total     int
	Failures  []string
}

// successTemplate returns the template for a completed action.
func successTemplate(a CommandAction) string {
	switch a {
	case CommandSetMode:
		return tmplSetMode
	case CommandTurnOn:
		return tmplTurnOn
	case CommandTurnOff:
		return tmplTurnOff
	default:
		return tmplSetTemperature
	}
}

// failureTemplate returns the template for a failure tag.
func failureTemplate(f *Failure) string {
	switch f.Reason {
	case ReasonNotFound:
		return tmplNotFound
	case ReasonAmbiguous:
		return tmplAmbiguous
	case ReasonOutOfCapability:
		return tmplOutOfRange
	case ReasonUnsupportedAction:
		if f.Action == CommandSetMode && len(f.Modes) > 0 {
			return tmplUnsupportedMode
		}
		return tmplUnsupportedAction
	case ReasonInvalidParameter:
		return tmplInvalidParameter
	case ReasonDispatchTimeout:
		return tmplDispatchTimeout
	case ReasonDispatchFailed:
		return tmplDispatchFailed
	default:
		return tmplGenericFailure
	}
}

// RenderSuccess renders the confirmation for a dispatched action.
func (r *Renderer) RenderSuccess(va ValidatedAction) (string, error) {
	v := view{
		Device: va.Device.Name,
		Room:   va.RoomName,
		Kind:   va.Device.Kind.Label(),
		Action: string(va.Action),
	}
	switch val := va.Value.(type) {
	case float64:
		v.Value = formatNumber(val)
	case string:
		v.Value, v.Mode = val, val
	}
	return r.Render(successTemplate(va.Action), v)
}

// RenderFailure renders the explanation for a failed outcome.
func (r *Renderer) RenderFailure(f *Failure) (string, error) {
	return r.Render(failureTemplate(f), failureView(f))
}

func failureView(f *Failure) view {
	v := view{
		Room:              f.RoomName,
		Phrase:            f.Phrase,
		Action:            string(f.Action),
		ActionLabel:       actionLabel(f.Action),
		Requested:         f.Requested,
		Bound:             string(f.Bound),
		Limit:             formatNumber(f.Limit),
		Modes:             f.Modes,
		RoomHint:          f.RoomHint,
		RoomHintUnmatched: f.RoomHintUnmatched,
	}
	if f.Device != nil {
		v.Device = f.Device.Name
		v.Kind = f.Device.Kind.Label()
	}
	for _, c := range f.Candidates {
		v.Candidates = append(v.Candidates, c.Label())
	}
	return v
}

// GroupSummary is the aggregate of a multi-device request.
type GroupSummary struct {
	Action    CommandAction
	Value     any
	Room      string
	Succeeded int
	Total     int
	Failures  []*Failure
}

// RenderGroup renders one reply for a group request: the success count
// followed by a sentence per failed device.
func (r *Renderer) RenderGroup(g GroupSummary) (string, error) {
	v := view{
		Room:      g.Room,
		Action:    string(g.Action),
		Summary:   groupSummary(g.Action, g.Value),
		Succeeded: g.Succeeded,
		Total:     g.Total,
	}
	for _, f := range g.Failures {
		text, err := r.RenderFailure(f)
		if err != nil {
			return "", err
		}
		v.Failures = append(v.Failures, text)
	}
	return r.Render(tmplGroup, v)
}

// RenderHelp renders the usage text.
func (r *Renderer) RenderHelp() (string, error) {
	return r.Render(tmplHelp, view{})
}

// RenderUnknownIntent renders the reply for an unrecognised verb.
func (r *Renderer) RenderUnknownIntent() (string, error) {
	return r.Render(tmplUnknownIntent, view{})
}

// RenderGenericFailure renders the reply for an internal failure. It never
// returns an empty string.
func (r *Renderer) RenderGenericFailure() string {
	text, err := r.Render(tmplGenericFailure, view{})
	if err != nil || text == "" {
		return fallbackText
	}
	return text
}

func actionLabel(a CommandAction) string {
	switch a {
	case CommandSetTemperature:
		return "setting the temperature"
	case CommandSetMode:
		return "changing mode"
	case CommandTurnOn:
		return "switching on"
	case CommandTurnOff:
		return "switching off"
	default:
		return string(a)
	}
}

func groupSummary(a CommandAction, value any) string {
	switch a {
	case CommandSetTemperature:
		if f, ok := value.(float64); ok {
			return "Set to " + formatNumber(f) + " degrees"
		}
		return "Temperature set"
	case CommandSetMode:
		if s, ok := value.(string); ok {
			return "Set to " + s + " mode"
		}
		return "Mode set"
	case CommandTurnOn:
		return "Switched on"
	case CommandTurnOff:
		return "Switched off"
	default:
		return "Done"
	}
}

// naturalList joins items as spoken English: "a", "a or b", "a, b, or c".
func naturalList(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + conj + " " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", " + conj + " " + items[len(items)-1]
	}
}
