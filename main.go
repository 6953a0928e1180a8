package main

import "github.com/KaramelBytes/tabloom/cmd"

func main() {
	cmd.Execute()
}
