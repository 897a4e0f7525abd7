// paramwatch compiles, decodes and dry-runs Aragon ACL permission parameters.
package main

import "github.com/ppiankov/paramwatch/internal/cli"

func main() {
	cli.Execute()
}
