// Command flows serves, inspects and chats with conversation flows.
package main

func main() {
	Execute()
}
