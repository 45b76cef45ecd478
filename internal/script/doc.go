// Package script runs orchestrator components written in Lua.
//
// A script is one component. Its file name (without ".lua") is the
// component id, and a global table named depends lists the ids it
// depends on. The script may define any of the hook functions:
//
//	on_initialize()
//	on_destroy()
//	on_message(message, data)
//	render()            -- may return a string
//
// Scripts talk to the orchestrator through the global sb table:
//
//	sb.id()                       -- the component id
//	sb.emit(name, payload, opts)  -- accepted, event id or rejection
//	sb.on(pattern, fn, opts)      -- fn(event); returns the subscription id
//	sb.off(id)
//	sb.set_state(path, value)
//	sb.merge_state(path, table)
//	sb.delete_state(path)
//	sb.get_state(path)
//	sb.on_state(path, fn)         -- fn(change)
//	sb.off_state(id)
//	sb.process_queue()            -- delivers queued events; returns the count
//	sb.log(level, message)
//
// Each component has its own sandboxed Lua state with the base, table,
// string and math libraries only. Hook calls are bounded by a timeout.
// The sb table is installed on registration, so top-level script code
// may not use it; hooks and handlers may.
package script
