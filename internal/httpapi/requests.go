package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nvandessel/osteon/internal/simulation"
)

// badRequest marks client input errors that never reach the simulator.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

// strengthScenario builds the scenario behind GET /strength from query
// parameters. Every parameter is optional.
func strengthScenario(q url.Values) (simulation.Scenario, error) {
	sc := simulation.Scenario{
		Name: "strength",
		Policies: simulation.Policies{
			FactorPolicy: q.Get("factor_policy"),
			Maturation:   q.Get("maturation"),
			Activation:   q.Get("activation"),
		},
	}
	floats := []struct {
		key string
		dst **float64
	}{
		{"ph", &sc.Environment.PH},
		{"temperature", &sc.Environment.Temperature},
		{"oxygen", &sc.Environment.Oxygen},
	}
	for _, f := range floats {
		v, ok, err := queryFloat(q, f.key)
		if err != nil {
			return sc, err
		}
		if ok {
			*f.dst = &v
		}
	}
	var err error
	if sc.Days, _, err = queryFloat(q, "days"); err != nil {
		return sc, err
	}
	if sc.StepDays, _, err = queryFloat(q, "step_days"); err != nil {
		return sc, err
	}
	if sc.Policies.EnzymeExpression, _, err = queryFloat(q, "enzyme_expression"); err != nil {
		return sc, err
	}
	return sc, nil
}

func queryFloat(q url.Values, key string) (float64, bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, badRequestf("%s must be a number, got %q", key, raw)
	}
	return v, true, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequestf("limit must be a positive integer, got %q", raw)
	}
	return n, nil
}

func decodeScenario(w http.ResponseWriter, r *http.Request) (simulation.Scenario, error) {
	var sc simulation.Scenario
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil {
		return sc, badRequestf("invalid scenario body: %v", err)
	}
	return sc, nil
}
