// Package facts is the registration side of fact collection.
//
// A fact is a named string value that is computed on demand. Collectors
// produce Definitions, each pairing a name with a ValueFunc, and a Set
// holds the registered definitions for one gathering. Values are resolved
// lazily the first time they are requested and memoized afterwards, so a
// caller that asks for a single fact never pays for the others.
//
// Typical use:
//
//	set, err := facts.Gather(ctx, jboss.NewCollector(fsys, jboss.DefaultInstancePath))
//	if err != nil {
//	    return err
//	}
//	if v, ok := set.Value("jboss_instances"); ok {
//	    fmt.Println(v)
//	}
package facts
