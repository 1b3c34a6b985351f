// Command baktu is the CLI front end over internal/repo and internal/engine:
// repository/site bootstrapping, include/exclude list maintenance, and
// running a snapshot. It mirrors cli::Baktu::exec in the original.
package main

func main() {
	Execute()
}
