// Command csat runs a simulated CubeSat network on the host.
package main

import "github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/csat/cmd"

func main() {
	cmd.Execute()
}
