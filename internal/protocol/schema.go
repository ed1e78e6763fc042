package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "mem://protocol/schemas/"

// PanelInbound and HostInbound are the message types each endpoint accepts.
var (
	PanelInbound = []string{TypeInit, TypeSetPosition, TypeClearPosition, TypeClose, TypeThrow, TypeUpdateSettings}
	HostInbound  = []string{
		TypeHostHello, TypeActor, TypeActorRemove, TypePath,
		TypeSceneStart, TypePhaseChange, TypeSceneEnd,
		TypeGameLoaded, TypeNewGame, TypePreLoadGame,
		TypeInput, TypeCall,
	}
)

// Validator checks inbound messages against the embedded schema for their type.
type Validator struct {
	byType map[string]*jsonschema.Schema
}

func NewValidator(types []string) (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	v := &Validator{byType: map[string]*jsonschema.Schema{}}
	for _, typ := range types {
		name := schemaFile(typ)
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", typ, err)
		}
		if err := c.AddResource(schemaBase+name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("schema for %s: %w", typ, err)
		}
	}
	for _, typ := range types {
		s, err := c.Compile(schemaBase + schemaFile(typ))
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", typ, err)
		}
		v.byType[typ] = s
	}
	return v, nil
}

func schemaFile(typ string) string {
	return strings.ToLower(typ) + ".schema.json"
}

// Validate decodes b, picks the schema for its type and validates it. The returned error
// carries a protocol error code in Code.
func (v *Validator) Validate(b []byte) (BaseMessage, *ErrorMsg) {
	base, err := DecodeBase(b)
	if err != nil {
		e := NewError(ErrProtoBadRequest, "bad json: "+err.Error())
		return base, &e
	}
	s := v.byType[base.Type]
	if s == nil {
		e := NewError(ErrProtoBadRequest, fmt.Sprintf("unexpected message type %q", base.Type))
		return base, &e
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		e := NewError(ErrProtoBadRequest, "bad json: "+err.Error())
		return base, &e
	}
	if err := s.Validate(doc); err != nil {
		e := NewError(ErrProtoSchema, err.Error())
		return base, &e
	}
	return base, nil
}
