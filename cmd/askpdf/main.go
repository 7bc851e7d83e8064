package main

import (
	"github.com/haydenk/askpdf/internal/cli"
)

func main() {
	cli.Execute()
}
