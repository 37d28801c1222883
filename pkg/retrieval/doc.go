// Package retrieval embeds the relocation assistant's retrieval pipeline in
// another Go program.
//
// An Engine classifies questions, rewrites them for web search, scores and
// filters provider results, reuses similar past searches and assembles a
// token-budgeted context for a language model:
//
//	eng, err := retrieval.New(retrieval.WithSearchAPI(os.Getenv("SEARCH_API_KEY")))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	resp, err := eng.Run(ctx, retrieval.Request{
//		Query:     "best neighborhoods in Austin for families",
//		Options:   retrieval.DefaultAssemblyOptions(),
//		Threshold: -1,
//	})
//
// Each Engine owns its own search cache. Engines are safe for concurrent use.
package retrieval
