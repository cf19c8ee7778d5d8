package core

import "sort"

var registry = map[string]Command{}

// RegisterCommand registers a command. Called from init() in command files.
func RegisterCommand(cmd Command) {
	registry[cmd.Name()] = cmd
}

// GetCommand returns the command with the given name.
func GetCommand(name string) (Command, bool) {
	cmd, ok := registry[name]
	return cmd, ok
}

// AllCommands returns all registered commands sorted by name.
func AllCommands() []Command {
	list := make([]Command, 0, len(registry))
	for _, cmd := range registry {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// ApplyMiddlewares wraps every registered command in place.
func ApplyMiddlewares(mws ...Middleware) {
	for name, cmd := range registry {
		for _, mw := range mws {
			cmd = mw(cmd)
		}
		registry[name] = cmd
	}
}
