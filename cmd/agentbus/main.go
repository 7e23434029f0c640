// agentbus: durable ordered event bus for AI agent tool calls.
// Agents append intentions; deciders append commits and aborts;
// agents act only on commit.
package main

import "github.com/ppiankov/agentbus/internal/cli"

func main() {
	cli.Execute()
}
