package canvas

import (
	"encoding/json"

	"github.com/juju/errors"

	"github.com/msalah0e/cloudcanvas/internal/catalog"
)

// PayloadMIME keys the component definition inside a drag payload.
const PayloadMIME = "application/x-cloudcanvas-component"

// ErrNoPayload is returned by DecodePayload when the transfer carries no
// usable component.
const ErrNoPayload = errors.ConstError("no component payload")

// DataTransfer is the data carried by a drag gesture, keyed by MIME type.
type DataTransfer struct {
	EffectAllowed string
	items         map[string]string
}

// SetData stores data under format.
func (dt *DataTransfer) SetData(format, data string) {
	if dt.items == nil {
		dt.items = make(map[string]string)
	}
	dt.items[format] = data
}

// GetData returns the data stored under format, or "".
func (dt *DataTransfer) GetData(format string) string {
	if dt == nil {
		return ""
	}
	return dt.items[format]
}

// DragStart builds the payload for dragging def out of the palette.
func DragStart(def catalog.ComponentDefinition) (*DataTransfer, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return nil, errors.Annotatef(err, "encoding component %q", def.ID)
	}
	dt := &DataTransfer{EffectAllowed: "move"}
	dt.SetData(PayloadMIME, string(data))
	return dt, nil
}

// DecodePayload extracts the component definition from a drop.
func DecodePayload(dt *DataTransfer) (catalog.ComponentDefinition, error) {
	raw := dt.GetData(PayloadMIME)
	if raw == "" {
		return catalog.ComponentDefinition{}, errors.Trace(ErrNoPayload)
	}
	var def catalog.ComponentDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return catalog.ComponentDefinition{}, errors.WithType(errors.Annotate(err, "decoding drag payload"), ErrNoPayload)
	}
	if def.ID == "" {
		return catalog.ComponentDefinition{}, errors.WithType(errors.New("drag payload has no component id"), ErrNoPayload)
	}
	return def, nil
}
