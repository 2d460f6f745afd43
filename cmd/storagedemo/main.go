/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import "github.com/suparena/storagegateway/cmd/storagedemo/commands"

func main() {
	commands.Execute()
}
