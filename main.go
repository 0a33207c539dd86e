// redisplit is a transparent Redis proxy that fragments multi-key commands
// across a pool of sharded upstream hosts and reassembles their replies.
package main

import "redisplit/cmd"

func main() {
	cmd.Execute()
}
