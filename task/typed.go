package task

import (
	"context"
	"encoding/json"
	"fmt"
)

// TypedActivity wraps a typed handler in an ActivityFunc that JSON-decodes
// the input and JSON-encodes the output.
func TypedActivity[In, Out any](fn func(ctx context.Context, ac ActivityContext, in In) (Out, error)) ActivityFunc {
	return func(ctx context.Context, ac ActivityContext, input []byte) ([]byte, error) {
		var in In
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("unmarshal input for activity %q: %w", ac.Name(), err)
			}
		}
		out, err := fn(ctx, ac, in)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	}
}

// TypedOrchestration wraps a typed handler in an OrchestrationFunc.
func TypedOrchestration[In, Out any](fn func(ctx context.Context, oc OrchestrationContext, in In) (Out, error)) OrchestrationFunc {
	return func(ctx context.Context, oc OrchestrationContext, input []byte) ([]byte, error) {
		var in In
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("unmarshal input for orchestration %q: %w", oc.Name(), err)
			}
		}
		out, err := fn(ctx, oc, in)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	}
}

// CallActivity calls an activity with a JSON-encoded input and decodes its
// output into Out.
func CallActivity[Out any](ctx context.Context, oc OrchestrationContext, name, version string, in any) (Out, error) {
	var out Out
	payload, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("marshal input for activity %q: %w", name, err)
	}
	raw, err := oc.CallActivity(ctx, name, version, payload)
	if err != nil {
		return out, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("unmarshal output of activity %q: %w", name, err)
		}
	}
	return out, nil
}
