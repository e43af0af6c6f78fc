// Command taskdesk is a terminal client for the task dashboard backend.
package main

import "github.com/twiced-technology-gmbh/taskdesk/cmd"

func main() {
	cmd.Execute()
}
