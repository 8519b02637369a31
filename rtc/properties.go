package rtc

import (
	"io/ioutil"
	"sort"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
)

const (
	// Remap separates name and value in a command line property.
	Remap = ":="

	defaultConfPrefix = "conf.default."
)

// Properties is a set of named string values. Configuration crosses the
// framework boundary as text and is parsed by the component at bind time.
type Properties struct {
	values map[string]string
}

func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// PropertiesFrom builds a Properties from a name/value map.
func PropertiesFrom(m map[string]string) *Properties {
	p := NewProperties()
	for k, v := range m {
		p.values[k] = v
	}
	return p
}

func (p *Properties) Set(name, value string) {
	p.values[name] = value
}

// SetDefault sets name only if it has no value yet.
func (p *Properties) SetDefault(name, value string) {
	if _, ok := p.values[name]; !ok {
		p.values[name] = value
	}
}

func (p *Properties) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// GetOr returns the value of name or def if it is unset.
func (p *Properties) GetOr(name, def string) string {
	if v, ok := p.values[name]; ok {
		return v
	}
	return def
}

// Names returns all property names in sorted order.
func (p *Properties) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Merge copies every value of other into p, overwriting existing ones.
func (p *Properties) Merge(other *Properties) {
	if other == nil {
		return
	}
	for k, v := range other.values {
		p.values[k] = v
	}
}

// LoadJSONFile reads a JSON object of properties from path.
func LoadJSONFile(path string) (*Properties, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read configuration %s", path)
	}
	p, err := ParseJSON(data)
	if err != nil {
		return nil, errors.Wrapf(err, "configuration %s", path)
	}
	return p, nil
}

// ParseJSON reads a JSON object of properties. Nested objects are flattened
// into dotted names and the "conf.default." prefix is dropped, so both
// {"max_vel": "0.3"} and {"conf": {"default": {"max_vel": 0.3}}} yield
// max_vel=0.3. Numbers and booleans are kept in their literal text form.
func ParseJSON(data []byte) (*Properties, error) {
	p := NewProperties()
	if err := flattenJSON(p, "", data); err != nil {
		return nil, err
	}
	return p, nil
}

func flattenJSON(p *Properties, prefix string, data []byte) error {
	return jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		name := prefix + string(key)
		switch dataType {
		case jsonparser.Object:
			return flattenJSON(p, name+".", value)
		case jsonparser.String:
			s, err := jsonparser.ParseString(value)
			if err != nil {
				return errors.Wrapf(err, "property %q", name)
			}
			p.Set(strings.TrimPrefix(name, defaultConfPrefix), s)
		case jsonparser.Number, jsonparser.Boolean:
			p.Set(strings.TrimPrefix(name, defaultConfPrefix), string(value))
		case jsonparser.Null:
		default:
			return errors.Errorf("property %q: unsupported value type %v", name, dataType)
		}
		return nil
	})
}

// ProcessArguments splits command line arguments into property assignments
// (_name:=value), special assignments (__name:=value) and the remaining
// arguments.
func ProcessArguments(args []string) (*Properties, *Properties, []string) {
	params := NewProperties()
	specials := make(map[string]string)
	rest := make([]string, 0)
	for _, arg := range args {
		components := strings.Split(arg, Remap)
		if len(components) != 2 {
			rest = append(rest, arg)
			continue
		}
		key, value := components[0], components[1]
		switch {
		case strings.HasPrefix(key, "__"):
			specials[key] = value
		case strings.HasPrefix(key, "_"):
			params.Set(key[1:], value)
		default:
			rest = append(rest, arg)
		}
	}
	return params, PropertiesFrom(specials), rest
}

// Float64 parses the value of name as a float.
func (p *Properties) Float64(name string) (float64, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, errors.Errorf("property %q is not set", name)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "property %q", name)
	}
	return f, nil
}

// Bool parses the value of name as a boolean. Integers are true when
// non-zero.
func (p *Properties) Bool(name string) (bool, error) {
	v, ok := p.values[name]
	if !ok {
		return false, errors.Errorf("property %q is not set", name)
	}
	v = strings.TrimSpace(v)
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i != 0, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "property %q", name)
	}
	return b, nil
}
