package protocol_test

import (
	"testing"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	panel, err := protocol.NewValidator(protocol.PanelInbound)
	if err != nil {
		t.Fatalf("panel validator: %v", err)
	}
	host, err := protocol.NewValidator(protocol.HostInbound)
	if err != nil {
		t.Fatalf("host validator: %v", err)
	}

	ok := func(v *protocol.Validator, msg string) {
		t.Helper()
		if _, e := v.Validate([]byte(msg)); e != nil {
			t.Fatalf("validate %s: %s %s", msg, e.Code, e.Message)
		}
	}
	bad := func(v *protocol.Validator, msg, code string) {
		t.Helper()
		_, e := v.Validate([]byte(msg))
		if e == nil {
			t.Fatalf("expected %s to be rejected", msg)
		}
		if e.Code != code {
			t.Fatalf("%s: code=%s want %s", msg, e.Code, code)
		}
	}

	ok(panel, `{"type":"INIT"}`)
	ok(panel, `{"type":"SET_POSITION","axis":"X","value":-2.5}`)
	ok(panel, `{"type":"CLEAR_POSITION"}`)
	ok(panel, `{"type":"CLOSE"}`)
	ok(panel, `{"type":"THROW","message":"TypeError"}`)
	ok(panel, `{"type":"UPDATE_SETTINGS","name":"iNPCPositionerType","value":1}`)

	ok(host, `{"type":"HOST_HELLO","protocol_version":"1.0","protagonist":20,"menu_handlers":[true,true],"input_layers":4}`)
	ok(host, `{"type":"ACTOR","actor":{"id":10,"ref_scale":0.9,"angle":1.5,"pos":[1,2,3]}}`)
	ok(host, `{"type":"ACTOR_REMOVE","id":10}`)
	ok(host, `{"type":"PATH","id":10,"goal":[0,0,0]}`)
	ok(host, `{"type":"SCENE_START","actors":[20,10],"stand_in":256}`)
	ok(host, `{"type":"PHASE_CHANGE","actors":[20,10],"profile":"bed"}`)
	ok(host, `{"type":"SCENE_END","actors":[10]}`)
	ok(host, `{"type":"GAME_LOADED","language":"en"}`)
	ok(host, `{"type":"NEW_GAME"}`)
	ok(host, `{"type":"PRE_LOAD_GAME"}`)
	ok(host, `{"type":"INPUT","device":"thumbstick","prev":"up","curr":"none"}`)
	ok(host, `{"type":"CALL","id":"1","function":"CanMove"}`)

	bad(panel, `{"type":"SET_POSITION","axis":"W","value":1}`, protocol.ErrProtoSchema)
	bad(panel, `{"type":"SET_POSITION","axis":"X"}`, protocol.ErrProtoSchema)
	bad(panel, `{"type":"UPDATE_SETTINGS","name":"bNope","value":1}`, protocol.ErrProtoSchema)
	bad(panel, `{"type":"SCENE_START","actors":[1]}`, protocol.ErrProtoBadRequest)
	bad(panel, `{"type":`, protocol.ErrProtoBadRequest)
	bad(host, `{"type":"ACTOR","actor":{"id":10,"pos":[1,2]}}`, protocol.ErrProtoSchema)
	bad(host, `{"type":"HOST_HELLO"}`, protocol.ErrProtoSchema)
	bad(host, `{"type":"INPUT","device":"joystick"}`, protocol.ErrProtoSchema)
}
