// Package tourassist embeds the tour storefront support assistant in a Go program.
//
// The client wires the same pipeline as the tourassist service: keyword intent gate,
// canned replies, contact collection with human handoff, and retrieval-augmented
// answers over a precomputed tour corpus.
//
//	client, err := tourassist.New(ctx,
//	    tourassist.WithCorpusFile("data/corpus.parquet"),
//	    tourassist.WithOpenAI(os.Getenv("OPENAI_API_KEY"), ""),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	ans, err := client.Answer(ctx, "Tour Đà Lạt 3 ngày giá bao nhiêu?", history,
//	    tourassist.WithConversationID(sessionID),
//	)
//
// Answer only fails on invalid input (errors.Is(err, tourassist.ErrValidation)).
// Provider and corpus failures come back as fixed fallback texts.
package tourassist
