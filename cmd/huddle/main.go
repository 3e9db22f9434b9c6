// Command huddle hosts collaborative activity rooms and manages the activity catalog.
package main

func main() {
	Execute()
}
