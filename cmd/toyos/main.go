// Command toyos boots the kernel on an emulated machine and inspects its
// memory subsystem.
package main

func main() {
	execute()
}
