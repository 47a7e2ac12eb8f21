package builtins

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

type Kind int

const (
	FunctionKind Kind = iota
	RollOptionKind
)

type Parameter struct {
	Name        string  `json:"-"`
	Type        string  `json:"type"`
	Default     *string `json:"default,omitempty"`
	Description string  `json:"description,omitempty"`
	IsVariadic  bool    `json:"isParamArray,omitempty"`
}

func (p Parameter) Required() bool {
	return p.Default == nil || *p.Default == ""
}

// Parameters keeps catalog parameters in their declared order. In the
// catalog they are a JSON object keyed by parameter name, so decoding walks
// the object token by token instead of going through a map.
type Parameters []Parameter

func (ps *Parameters) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ps = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("parameters must be an object")
	}

	out := Parameters{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return errors.Errorf("unexpected parameter key %v", keyTok)
		}

		var param Parameter
		if err := dec.Decode(&param); err != nil {
			return errors.Wrapf(err, "parameter %q", name)
		}
		param.Name = name
		out = append(out, param)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*ps = out
	return nil
}

func (ps Parameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range ps {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UsageSignature is one accepted call shape of a definition.
type UsageSignature struct {
	Parameters Parameters `json:"parameters,omitempty"`
	IsTrusted  bool       `json:"isTrusted,omitempty"`
}

type Definition struct {
	Name        string           `json:"name"`
	Aliases     []string         `json:"aliases,omitempty"`
	Description string           `json:"description,omitempty"`
	IsTrusted   bool             `json:"isTrusted,omitempty"`
	Usages      []UsageSignature `json:"usages,omitempty"`
	Returns     string           `json:"returns,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Wiki        string           `json:"wiki,omitempty"`
	Kind        Kind             `json:"-"`
}

// LastUsage returns the most complete (last declared) signature.
func (def *Definition) LastUsage() (UsageSignature, bool) {
	if len(def.Usages) == 0 {
		return UsageSignature{}, false
	}
	return def.Usages[len(def.Usages)-1], true
}
