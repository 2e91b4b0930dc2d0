package main

import "ajeossida/internal/ajeossida"

func main() {
	ajeossida.Main()
}
