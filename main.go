package main

import (
	"github.com/DucAnhBoDoi/Music-App/cmd"
)

func main() {
	cmd.Execute()
}
