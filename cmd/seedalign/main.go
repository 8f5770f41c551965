// cmd/seedalign/main.go
package main

import (
	"seedalign/internal/app"
	"seedalign/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
