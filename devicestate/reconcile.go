package devicestate

import (
	"time"

	"github.com/kestrelaudio/audiograph/config"
)

// batchSize and batchSpacing match spec.md §4.6: "batched into bundles
// of <= 50 messages, with <= 20ms spacing between batches".
const (
	batchSize    = 50
	batchSpacing = 20 * time.Millisecond
)

// QueryResult is one address/value pair gathered by QueryFullState.
type QueryResult struct {
	Address string
	Value   float32
}

// Querier is the read half of the parameter plane: it asks the
// device for address's current value, invoking cb once with the
// result (spec.md §4.6 "query(address, callback)").
type Querier interface {
	Query(address string, cb func(value float32, ok bool))
}

// QueryFullState issues one per-parameter query for each of addresses,
// in order and one at a time, aggregating the results into the
// manager's DeviceState and invoking done once all queries have
// completed or timed out (spec.md §4.6 "query_full_state(callback)").
// It sends no device-specific refresh command before the queries.
//
// After every batchSize queries it pauses for batchSpacing, mirroring
// apply_configuration's own pacing so a full-state refresh on a large
// channel count doesn't flood the device; queries inside a batch are
// not spaced apart.
func (m *Manager) QueryFullState(q Querier, addresses []string, perQueryTimeout time.Duration, done func([]QueryResult)) {
	results := make([]QueryResult, 0, len(addresses))
	resultCh := make(chan QueryResult, 1)

	go func() {
		for i, addr := range addresses {
			if i > 0 && i%batchSize == 0 {
				time.Sleep(batchSpacing)
			}
			addr := addr
			waiting := make(chan struct{})
			q.Query(addr, func(value float32, ok bool) {
				if ok {
					resultCh <- QueryResult{Address: addr, Value: value}
				}
				close(waiting)
			})
			select {
			case <-waiting:
			case <-time.After(perQueryTimeout):
			}
		}
		close(resultCh)
	}()

	for r := range resultCh {
		m.OnParameterEvent(r.Address, r.Value)
		results = append(results, r)
	}
	done(results)
}

// ParamCommand is one (address, normalized value) pair to send,
// computed by Diff.
type ParamCommand struct {
	Address string
	Value   float32
}

// Diff computes the parameters that must change to bring the current
// state in line with target's commands, per spec.md §4.6:
// "diff(current, target) -> set<(address, value)>". Only commands
// whose address is not already at the target value (within a small
// epsilon) are returned.
func (m *Manager) Diff(target *config.Configuration) []ParamCommand {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ParamCommand
	for _, cmd := range target.Commands {
		if len(cmd.Args) == 0 {
			continue
		}
		v, ok := toFloat32(cmd.Args[0])
		if !ok {
			continue
		}
		current, exists := m.state.Parameters[cmd.Address]
		if exists && !current.Pending && floatsEqual(current.Value, v) {
			continue
		}
		out = append(out, ParamCommand{Address: cmd.Address, Value: v})
	}
	return out
}

func toFloat32(v interface{}) (float32, bool) {
	switch n := v.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	case bool:
		return EncodeBool(n), true
	default:
		return 0, false
	}
}

func floatsEqual(a, b float32) bool {
	const epsilon = 1e-4
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < epsilon
}

// ApplyConfiguration computes Diff(target), sends only the changed
// parameters through the parameter plane in batches of <= 50 with
// <= 20ms spacing between batches, and invokes done with overall
// success once every send has been attempted (spec.md §4.6
// "apply_configuration(target_config, callback)"). A send failure for
// any one parameter does not abort the batch; done receives false iff
// any parameter failed to send.
func (m *Manager) ApplyConfiguration(target *config.Configuration, done func(success bool)) {
	commands := m.Diff(target)

	go func() {
		allOK := true
		for i, cmd := range commands {
			if i > 0 && i%batchSize == 0 {
				time.Sleep(batchSpacing)
			}
			if err := m.plane.Send(cmd.Address, cmd.Value); err != nil {
				allOK = false
				continue
			}
			m.mu.Lock()
			m.state.Parameters[cmd.Address] = Parameter{Value: cmd.Value, Pending: true, SentAt: now()}
			m.mu.Unlock()
		}
		done(allOK)
	}()
}
