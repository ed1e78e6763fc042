package panel

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/protocol"
)

// Dispatch runs one validated inbound panel message. Offset and settings changes go through
// c; open/close state is handled by the panel itself.
func (p *Panel) Dispatch(ctx context.Context, c positioner.Commander, typ string, raw []byte) *protocol.ErrorMsg {
	switch typ {
	case protocol.TypeInit:
		p.Init()
	case protocol.TypeClose:
		p.Close()
	case protocol.TypeThrow:
		var m protocol.ThrowMsg
		_ = json.Unmarshal(raw, &m)
		p.log.Printf("panel threw: %s", m.Message)
		p.Close()
	case protocol.TypeSetPosition:
		var m protocol.SetPositionMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg(protocol.ErrProtoBadRequest, err)
		}
		axis, ok := geom.ParseAxis(m.Axis)
		if !ok {
			e := protocol.NewError(protocol.ErrBadRequest, "bad axis "+m.Axis)
			return &e
		}
		return run(ctx, c, positioner.Command{Kind: positioner.KindSetOffset, Axis: axis, Value: m.Value})
	case protocol.TypeClearPosition:
		return run(ctx, c, positioner.Command{Kind: positioner.KindClearOffset})
	case protocol.TypeUpdateSettings:
		var m protocol.UpdateSettingsMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg(protocol.ErrProtoBadRequest, err)
		}
		e := run(ctx, c, positioner.Command{Kind: positioner.KindUpdateSetting, Setting: m.Name, Value: m.Value})
		if e != nil && e.Code == protocol.ErrBadRequest {
			e.Code = protocol.ErrUnknownSetting
		}
		return e
	default:
		e := protocol.NewError(protocol.ErrProtoBadRequest, "unexpected message type "+typ)
		return &e
	}
	return nil
}

func run(ctx context.Context, c positioner.Commander, cmd positioner.Command) *protocol.ErrorMsg {
	if _, err := c.Do(ctx, cmd); err != nil {
		if errors.Is(err, positioner.ErrStopped) {
			return errMsg(protocol.ErrStopped, err)
		}
		return errMsg(protocol.ErrBadRequest, err)
	}
	return nil
}

func errMsg(code string, err error) *protocol.ErrorMsg {
	e := protocol.NewError(code, err.Error())
	return &e
}
