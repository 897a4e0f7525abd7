package policy

import (
	"testing"
)

func BenchmarkParseExample(b *testing.B) {
	data := []byte(ExampleYAML())
	for i := 0; i < b.N; i++ {
		if _, err := Parse(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkProgramExample(b *testing.B) {
	p, err := Parse([]byte(ExampleYAML()))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := p.Program(); err != nil {
			b.Fatal(err)
		}
	}
}
