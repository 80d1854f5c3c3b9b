package publish

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altafino/mdimg-publish/internal/webimage"
)

func localRef(location, fallback string) *ImageReference {
	return &ImageReference{
		SourceToken: "![[" + location + "]]",
		Location:    location,
		Fallback:    fallback,
		DisplayName: path.Base(location),
	}
}

func TestCoordinatorEmptyInput(t *testing.T) {
	up := &fakeUploader{base: "https://cdn.test"}
	obs := &recordingObserver{}
	c := &Coordinator{Uploader: up, Files: newMemFS(), Observer: obs}

	batch := c.Run(context.Background(), nil)

	assert.True(t, batch.NothingToDo())
	assert.Empty(t, batch.Results)
	assert.Empty(t, up.names())
	assert.Zero(t, obs.started)
	assert.Empty(t, obs.finished)
}

func TestCoordinatorPartialFailure(t *testing.T) {
	up := &fakeUploader{base: "https://cdn.test"}
	obs := &recordingObserver{}
	notifier := &recordingNotifier{}
	c := &Coordinator{
		Uploader: up,
		Files:    newMemFS("images/a.png", "images/c.png"),
		Observer: obs,
		Notifier: notifier,
	}
	refs := []*ImageReference{
		localRef("images/a.png", ""),
		localRef("images/b.png", ""),
		localRef("images/c.png", ""),
	}

	batch := c.Run(context.Background(), refs)

	require.Len(t, batch.Results, 3)
	assert.Equal(t, Succeeded, batch.Results[0].Outcome.Kind)
	assert.Equal(t, FailedNotFound, batch.Results[1].Outcome.Kind)
	assert.ErrorIs(t, batch.Results[1].Outcome.Err, ErrResourceNotFound)
	assert.Equal(t, Succeeded, batch.Results[2].Outcome.Kind)

	assert.Equal(t, "https://cdn.test/a.png", refs[0].RemoteURL)
	assert.Empty(t, refs[1].RemoteURL)
	assert.Equal(t, 2, batch.Attempted)
	assert.False(t, batch.NothingToDo())
	assert.Equal(t, Counts{Total: 3, Succeeded: 2, Failed: 1}, batch.Counts())

	assert.Equal(t, 3, obs.started)
	assert.ElementsMatch(t, []string{"a.png=succeeded", "b.png=not_found", "c.png=succeeded"}, obs.settled)
	assert.Equal(t, []Counts{{Total: 3, Succeeded: 2, Failed: 1}}, obs.finished)
	assert.Equal(t, 1, notifier.count("warn"))
}

func TestCoordinatorOutcomeKinds(t *testing.T) {
	fs := newMemFS("a.png", "b.png")
	fs.unreadable["b.png"] = true
	rejected := errors.New("quota exceeded")
	up := &fakeUploader{base: "https://cdn.test", fail: map[string]error{"a.png": rejected}}
	c := &Coordinator{Uploader: up, Files: fs}

	batch := c.Run(context.Background(), []*ImageReference{localRef("a.png", ""), localRef("b.png", "")})

	assert.Equal(t, FailedRemoteError, batch.Results[0].Outcome.Kind)
	assert.ErrorIs(t, batch.Results[0].Outcome.Err, ErrRemoteUpload)
	assert.ErrorIs(t, batch.Results[0].Outcome.Err, rejected)
	assert.Equal(t, FailedReadError, batch.Results[1].Outcome.Kind)
	assert.ErrorIs(t, batch.Results[1].Outcome.Err, ErrResourceRead)
	assert.Equal(t, 1, batch.Attempted)
}

func TestCoordinatorUsesFallback(t *testing.T) {
	up := &fakeUploader{base: "https://cdn.test"}
	c := &Coordinator{
		Uploader:    up,
		Files:       newMemFS("posts/pic.png"),
		ContextPath: func(loc string) string { return "/vault/" + loc },
	}
	ref := localRef("images/pic.png", "posts/pic.png")

	batch := c.Run(context.Background(), []*ImageReference{ref})

	require.Equal(t, Succeeded, batch.Results[0].Outcome.Kind)
	assert.Equal(t, "posts/pic.png", ref.Location)
	require.Len(t, up.uploads, 1)
	assert.Equal(t, "/vault/posts/pic.png", up.uploads[0].contextPath)
	assert.Equal(t, "data:posts/pic.png", up.uploads[0].data)
}

func TestCoordinatorMergesReferencesSettlingOnOneFile(t *testing.T) {
	up := &fakeUploader{base: "https://cdn.test"}
	obs := &recordingObserver{}
	c := &Coordinator{Uploader: up, Files: newMemFS("notes/pic.png"), Observer: obs}
	embed := localRef("images/pic.png", "notes/pic.png")
	inline := &ImageReference{SourceToken: "![](./pic.png)", Location: "notes/pic.png", DisplayName: "pic.png"}

	batch := c.Run(context.Background(), []*ImageReference{embed, inline})

	require.Len(t, batch.Results, 1)
	assert.Same(t, embed, batch.Results[0].Ref)
	assert.Equal(t, Succeeded, batch.Results[0].Outcome.Kind)
	assert.Equal(t, []string{"![[images/pic.png]]", "![](./pic.png)"}, embed.Tokens())
	assert.Equal(t, []string{"pic.png"}, up.names())
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, 1, batch.Attempted)
}

func TestCoordinatorRemoteSource(t *testing.T) {
	up := &fakeUploader{base: "https://cdn.test"}
	c := &Coordinator{
		Uploader: up,
		Files:    newMemFS(),
		Downloader: &fakeDownloader{images: map[string]*webimage.Image{
			"https://example.com/cat.png": {Data: []byte("cat"), Filename: "cat.png", ContentType: "image/png"},
		}},
	}
	refs := []*ImageReference{
		{SourceToken: "![](https://example.com/cat.png)", Location: "https://example.com/cat.png", DisplayName: "cat.png", IsRemoteSource: true},
		{SourceToken: "![](https://example.com/gone.png)", Location: "https://example.com/gone.png", DisplayName: "gone.png", IsRemoteSource: true},
	}

	batch := c.Run(context.Background(), refs)

	assert.Equal(t, Succeeded, batch.Results[0].Outcome.Kind)
	assert.Equal(t, "https://cdn.test/cat.png", refs[0].RemoteURL)
	assert.Equal(t, FailedReadError, batch.Results[1].Outcome.Kind)
	assert.ErrorIs(t, batch.Results[1].Outcome.Err, webimage.ErrUnexpectedStatus)
	require.Len(t, up.uploads, 1)
	assert.Equal(t, "cat", up.uploads[0].data)
}

func TestCoordinatorNoDownloader(t *testing.T) {
	c := &Coordinator{Uploader: &fakeUploader{}, Files: newMemFS()}
	batch := c.Run(context.Background(), []*ImageReference{{Location: "https://x.test/a.png", IsRemoteSource: true}})

	assert.Equal(t, FailedReadError, batch.Results[0].Outcome.Kind)
	assert.True(t, batch.NothingToDo())
}

func TestCoordinatorConcurrency(t *testing.T) {
	paths := []string{"1.png", "2.png", "3.png", "4.png", "5.png", "6.png"}
	refs := make([]*ImageReference, len(paths))
	for i, p := range paths {
		refs[i] = localRef(p, "")
	}

	up := &fakeUploader{base: "https://cdn.test", delay: 20 * time.Millisecond}
	c := &Coordinator{Uploader: up, Files: newMemFS(paths...), MaxConcurrent: 2}

	batch := c.Run(context.Background(), refs)

	assert.Equal(t, 6, batch.Counts().Succeeded)
	assert.LessOrEqual(t, up.maxSeen.Load(), int32(2))
	for i, r := range batch.Results {
		assert.Same(t, refs[i], r.Ref)
	}
}

func TestCoordinatorUploadTimeout(t *testing.T) {
	up := &fakeUploader{base: "https://cdn.test", delay: time.Second}
	c := &Coordinator{Uploader: up, Files: newMemFS("a.png"), UploadTimeout: 10 * time.Millisecond}

	start := time.Now()
	batch := c.Run(context.Background(), []*ImageReference{localRef("a.png", "")})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, FailedRemoteError, batch.Results[0].Outcome.Kind)
	assert.ErrorIs(t, batch.Results[0].Outcome.Err, context.DeadlineExceeded)
}
