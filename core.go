package restx

import (
	"context"

	"github.com/aretw0/restx/pkg/registry"
	"github.com/aretw0/restx/pkg/session"
)

const (
	// CoreMachine is the discovery name of the machine providing framework defaults.
	CoreMachine = "restx.core"
	// SignatureKeyComponent is the component name used by WithSignatureKey.
	SignatureKeyComponent = "restx.signature-key"
)

func init() {
	registry.Register(CoreMachine, registry.MachineFunc(func(ctx context.Context) ([]registry.Component, error) {
		return []registry.Component{
			{Name: session.PayloadCodecName, Value: session.PayloadCodec(session.JSONCodec{})},
		}, nil
	}))
}
