package policy

import (
	"testing"
)

func FuzzParsePolicy(f *testing.F) {
	f.Add([]byte(ExampleYAML()))
	f.Add([]byte(`params:
  - {id: LOGIC_OP, op: IF_ELSE, if_else: [1, 2, 3]}
`))
	f.Add([]byte{})
	f.Add([]byte(`{{{not yaml at all`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic on any input
		p, err := Parse(data)
		if err != nil {
			return
		}
		p.Build()
	})
}
