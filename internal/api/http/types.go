package http

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/GriffinCanCode/motionbridge/internal/motion/tween"
	"github.com/GriffinCanCode/motionbridge/internal/scene"
)

// ScriptRequest runs a script on the privileged loop.
type ScriptRequest struct {
	Source string `json:"source" binding:"required"`
}

// LogLevelRequest changes the log level.
type LogLevelRequest struct {
	Level string `json:"level" binding:"required"`
}

// QueryRequest selects nodes by CSS selector or XPath. Exactly one is set.
type QueryRequest struct {
	Selector string `json:"selector"`
	XPath    string `json:"xpath"`
}

// InvokeRequest calls a native UI method on the first match of Selector.
type InvokeRequest struct {
	Selector string         `json:"selector" binding:"required"`
	Method   string         `json:"method" binding:"required"`
	Params   map[string]any `json:"params"`
}

// AnimationOptions mirrors the script animate() options. Times are seconds.
type AnimationOptions struct {
	Duration    float64   `json:"duration"`
	Delay       float64   `json:"delay"`
	Repeat      float64   `json:"repeat"`
	RepeatDelay float64   `json:"repeatDelay"`
	Type        string    `json:"type"`
	Ease        string    `json:"ease"`
	Stiffness   float64   `json:"stiffness"`
	Damping     float64   `json:"damping"`
	Mass        float64   `json:"mass"`
	Times       []float64 `json:"times"`
	// Stagger delays the i-th matched element by i*Stagger seconds.
	Stagger float64 `json:"stagger"`
}

// AnimateRequest animates every element matching Selector. Keyframe values
// are numbers, strings or arrays of either. Wait blocks until every
// animation has finished.
type AnimateRequest struct {
	Selector  string           `json:"selector" binding:"required"`
	Keyframes map[string]any   `json:"keyframes" binding:"required"`
	Options   AnimationOptions `json:"options"`
	Wait      bool             `json:"wait"`
}

// SceneRequest plays an inline scene or fetches one from URL.
type SceneRequest struct {
	URL   string       `json:"url"`
	Scene *scene.Scene `json:"scene"`
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func (o AnimationOptions) tween() tween.Options {
	opts := tween.Options{
		Duration:    seconds(o.Duration),
		Delay:       seconds(o.Delay),
		Repeat:      int(o.Repeat),
		RepeatDelay: seconds(o.RepeatDelay),
		Type:        o.Type,
		Ease:        o.Ease,
		Stiffness:   o.Stiffness,
		Damping:     o.Damping,
		Mass:        o.Mass,
		Offsets:     o.Times,
	}
	if o.Repeat < 0 || math.IsInf(o.Repeat, 1) {
		opts.Repeat = tween.Infinite
	}
	return opts
}

func keyframes(raw map[string]any) (tween.Keyframes, error) {
	kf := make(tween.Keyframes, len(raw))
	for name, v := range raw {
		switch v := v.(type) {
		case []any:
			values := make([]string, 0, len(v))
			for _, item := range v {
				s, err := keyframeValue(item)
				if err != nil {
					return nil, fmt.Errorf("keyframe %s: %w", name, err)
				}
				values = append(values, s)
			}
			kf[name] = values
		default:
			s, err := keyframeValue(v)
			if err != nil {
				return nil, fmt.Errorf("keyframe %s: %w", name, err)
			}
			kf[name] = []string{s}
		}
	}
	return kf, nil
}

func keyframeValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value %v", v)
	}
}
