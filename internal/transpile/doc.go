/*
Package transpile lowers TypeScript (and JSX) source to plain script for the
sandbox.

Transpile is pure and synchronous. It never type-checks: a program with type
errors still produces code. Only syntax errors produce diagnostics, and each
diagnostic carries a 1-based line and column when esbuild reports a location.

	res := transpile.Transpile(`const n: number = 1; console.log(n)`)
	if !res.Success {
		for _, d := range res.Diagnostics {
			fmt.Println(d)
		}
	}
*/
package transpile
