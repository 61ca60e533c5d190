package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"byronhub/internal/events"
	"byronhub/internal/model"
	"byronhub/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func sampleEntry(room string) Entry {
	capacity := 10
	return Entry{
		RoomID:   model.ID(room),
		RoomName: "Room " + room,
		Category: "SEMINAR",
		Capacity: &capacity,
		Floor:    "1",
		Usage:    "Meeting",
		People:   "4",
		Date:     "2025-05-01",
		Start:    "09:00",
		Duration: "30",
		Comments: "weekly sync",
	}
}

func loadedCart(t *testing.T) (*Cart, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	c := New(store, nil, testLogger())
	require.NoError(t, c.Load(context.Background()))
	return c, store
}

func TestEntryEqual(t *testing.T) {
	a := sampleEntry("A0.5")
	b := sampleEntry("A0.5")
	assert.True(t, a.Equal(b))

	other := 12
	b.Capacity = &other
	assert.False(t, a.Equal(b))

	b = sampleEntry("A0.5")
	b.Capacity = nil
	assert.False(t, a.Equal(b))

	b = sampleEntry("A0.5")
	b.Comments = "different"
	assert.False(t, a.Equal(b))
}

func TestAddRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := loadedCart(t)
	c.Add(ctx, sampleEntry("A0.5"))
	before := c.Entries()

	e := sampleEntry("A1.2")
	c.Add(ctx, e)
	require.Equal(t, 2, c.Len())

	assert.True(t, c.Remove(ctx, sampleEntry("A1.2")))
	assert.Equal(t, before, c.Entries())
}

func TestRemoveMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	c, _ := loadedCart(t)
	c.Add(ctx, sampleEntry("A0.5"))

	assert.NotPanics(t, func() {
		assert.False(t, c.Remove(ctx, sampleEntry("B2.1")))
	})
	assert.Equal(t, 1, c.Len())

	empty, _ := loadedCart(t)
	assert.False(t, empty.Remove(ctx, sampleEntry("A0.5")))
}

func TestRemoveTakesFirstMatchOnly(t *testing.T) {
	ctx := context.Background()
	c, _ := loadedCart(t)
	c.Add(ctx, sampleEntry("A0.5"))
	c.Add(ctx, sampleEntry("B2.1"))
	c.Add(ctx, sampleEntry("A0.5"))

	require.True(t, c.Remove(ctx, sampleEntry("A0.5")))
	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, model.ID("B2.1"), entries[0].RoomID)
	assert.Equal(t, model.ID("A0.5"), entries[1].RoomID)
}

func TestEntriesReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c, _ := loadedCart(t)
	c.Add(ctx, sampleEntry("A0.5"))

	entries := c.Entries()
	entries[0].RoomName = "changed"
	assert.Equal(t, "Room A0.5", c.Entries()[0].RoomName)
}

func TestPersistenceIsGatedOnLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeySelectedRooms, []Entry{sampleEntry("A0.5")}))
	require.NoError(t, store.Set(ctx, storage.KeyInitialTime, InitialTime{Date: "2025-05-01", Time: "10:00"}))

	c := New(store, nil, testLogger())
	c.Add(ctx, sampleEntry("B2.1"))
	c.SetInitialTime(ctx, InitialTime{})

	var stored []Entry
	_, err := store.Get(ctx, storage.KeySelectedRooms, &stored)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.ID("A0.5"), stored[0].RoomID)

	require.NoError(t, c.Load(ctx))
	assert.Equal(t, []Entry{sampleEntry("A0.5")}, c.Entries())
	assert.Equal(t, InitialTime{Date: "2025-05-01", Time: "10:00"}, c.InitialTime())

	c.Add(ctx, sampleEntry("C3.3"))
	_, err = store.Get(ctx, storage.KeySelectedRooms, &stored)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestLoadWithEmptyStoreKeepsMemory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c := New(store, nil, testLogger())
	c.Add(ctx, sampleEntry("A0.5"))

	require.NoError(t, c.Load(ctx))
	assert.True(t, c.Loaded())
	assert.Equal(t, 1, c.Len())

	_, ok := store.Raw(storage.KeySelectedRooms)
	assert.False(t, ok, "load must not write back")
}

func TestLoadFailureKeepsGate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c := New(store, nil, testLogger())
	require.NoError(t, store.Close())

	err := c.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.False(t, c.Loaded())
}

func TestWritesFollowMutationOrder(t *testing.T) {
	ctx := context.Background()
	c, store := loadedCart(t)

	c.Add(ctx, sampleEntry("A0.5"))
	c.Add(ctx, sampleEntry("B2.1"))
	c.Remove(ctx, sampleEntry("A0.5"))

	raw, ok := store.Raw(storage.KeySelectedRooms)
	require.True(t, ok)
	var stored []Entry
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, []Entry{sampleEntry("B2.1")}, stored)

	c.Clear(ctx)
	_, ok = store.Raw(storage.KeySelectedRooms)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestInitialTimeOverwritten(t *testing.T) {
	ctx := context.Background()
	c, store := loadedCart(t)

	c.SetInitialTime(ctx, InitialTime{Date: "2025-05-01", Time: "09:00"})
	c.SetInitialTime(ctx, InitialTime{Date: "2025-05-02", Time: "11:30"})
	c.Clear(ctx)

	assert.Equal(t, InitialTime{Date: "2025-05-02", Time: "11:30"}, c.InitialTime())
	var stored InitialTime
	found, err := store.Get(ctx, storage.KeyInitialTime, &stored)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "11:30", stored.Time)
}

func TestMutationsPublishChanges(t *testing.T) {
	ctx := context.Background()
	bus := events.NewEventBus()
	var changes []Change
	bus.Subscribe(events.CartChanged, func(ev events.Event) error {
		var ch Change
		if err := ev.Decode(&ch); err != nil {
			return err
		}
		changes = append(changes, ch)
		return errors.New("handler failure is only logged")
	})

	c := New(storage.NewMemoryStore(), bus, testLogger())
	c.Add(ctx, sampleEntry("A0.5"))
	c.Remove(ctx, sampleEntry("A0.5"))
	c.Remove(ctx, sampleEntry("A0.5"))
	c.Clear(ctx)

	assert.Equal(t, []Change{{"add", 1}, {"remove", 0}, {"clear", 0}}, changes)
}

func TestFromSlotPick(t *testing.T) {
	space := model.Space{ID: "A0.5", Name: "Lab", Category: "LABORATORY", Floor: "0", Capacity: 20}
	e := FromSlotPick(space, InitialTime{Date: "2025-05-01", Time: "09:00"}, Details{
		Use: "Class", People: "15", Duration: "60", Comments: "intro",
	})

	require.NotNil(t, e.Capacity)
	assert.Equal(t, 20, *e.Capacity)
	assert.Equal(t, "Lab", e.RoomName)
	assert.Equal(t, "2025-05-01", e.Date)
	assert.Equal(t, "09:00", e.Start)

	e = FromSlotPick(model.Space{ID: "B1"}, InitialTime{Date: "1/5/2025", Time: "09:00"}, Details{Start: "10:30"})
	assert.Nil(t, e.Capacity)
	assert.Equal(t, "B1", e.RoomName)
	assert.Equal(t, "10:30", e.Start)
	assert.Equal(t, "1/5/2025", e.Date)
}
