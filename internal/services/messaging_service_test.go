package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageCols = []string{"id", "booking_id", "thread_key", "sender_id", "receiver_id", "content", "is_read", "created_at"}

func newTestMessaging(t *testing.T) (*MessagingService, sqlmock.Sqlmock, *recordingPublisher, *clockwork.FakeClock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := clockwork.NewFakeClockAt(testNow)
	publisher := &recordingPublisher{}
	svc := &MessagingService{
		db:         db,
		clock:      clk,
		publisher:  publisher,
		ownerID:    "owner-1",
		maxContent: 2000,
	}
	return svc, mock, publisher, clk
}

func expectBookingThread(mock sqlmock.Sqlmock, bookingID string, status models.BookingStatus) {
	mock.ExpectQuery("SELECT seeker_id, provider_id, status FROM bookings WHERE id = \\$1").
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows([]string{"seeker_id", "provider_id", "status"}).
			AddRow("seeker-1", "provider-1", string(status)))
}

func TestMessagingService_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("booking thread content is redacted", func(t *testing.T) {
		svc, mock, publisher, _ := newTestMessaging(t)
		expectBookingThread(mock, "b-1", models.BookingAccepted)
		mock.ExpectExec("INSERT INTO messages").
			WithArgs(sqlmock.AnyArg(), "b-1", "booking:b-1", "seeker-1", "provider-1",
				"mail me at [email hidden] or call [phone hidden]", false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		msg, err := svc.SendMessage(ctx, seekerSession, models.BookingThread("b-1"), "mail me at a@b.com or call 9841234567")
		require.NoError(t, err)
		assert.Equal(t, "provider-1", msg.ReceiverID)
		assert.False(t, msg.IsRead)
		assert.NotContains(t, msg.Content, "a@b.com")
		assert.NotContains(t, msg.Content, "9841234567")

		events := publisher.Events(realtime.TableMessages)
		require.Len(t, events, 1)
		assert.Equal(t, realtime.OpInsert, events[0].Operation)
		assert.True(t, realtime.Eq("receiver_id", "provider-1").Matches(events[0].Row))
		assert.True(t, realtime.Eq("thread_key", "booking:b-1").Matches(events[0].Row))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pending booking thread accepts messages", func(t *testing.T) {
		svc, mock, _, _ := newTestMessaging(t)
		expectBookingThread(mock, "b-1", models.BookingPending)
		mock.ExpectExec("INSERT INTO messages").
			WithArgs(sqlmock.AnyArg(), "b-1", "booking:b-1", "provider-1", "seeker-1", "Sure, come by tomorrow", false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		_, err := svc.SendMessage(ctx, providerSession, models.BookingThread("b-1"), "  Sure, come by tomorrow ")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed booking thread", func(t *testing.T) {
		svc, mock, publisher, _ := newTestMessaging(t)
		expectBookingThread(mock, "b-1", models.BookingDeclined)

		_, err := svc.SendMessage(ctx, seekerSession, models.BookingThread("b-1"), "still there?")
		assert.ErrorIs(t, err, ErrThreadClosed)
		assert.Empty(t, publisher.Events(realtime.TableMessages))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outsider cannot post", func(t *testing.T) {
		svc, mock, _, _ := newTestMessaging(t)
		expectBookingThread(mock, "b-1", models.BookingAccepted)

		_, err := svc.SendMessage(ctx, &models.Session{AccountID: "seeker-2", Role: models.RoleSeeker}, models.BookingThread("b-1"), "hello")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("support thread is not redacted", func(t *testing.T) {
		svc, mock, _, _ := newTestMessaging(t)
		mock.ExpectExec("INSERT INTO messages").
			WithArgs(sqlmock.AnyArg(), nil, "support:seeker-1:owner-1", "seeker-1", "owner-1",
				"reach me at a@b.com", false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		msg, err := svc.SendMessage(ctx, seekerSession, models.SupportThread("seeker-1", "owner-1"), "reach me at a@b.com")
		require.NoError(t, err)
		assert.Nil(t, msg.BookingID)
		assert.Equal(t, "owner-1", msg.ReceiverID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("support thread with another owner", func(t *testing.T) {
		svc, _, _, _ := newTestMessaging(t)
		_, err := svc.SendMessage(ctx, seekerSession, models.SupportThread("seeker-1", "owner-2"), "hello")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("content validation", func(t *testing.T) {
		svc, mock, _, _ := newTestMessaging(t)

		_, err := svc.SendMessage(ctx, seekerSession, models.BookingThread("b-1"), "   ")
		assert.Equal(t, KindValidation, KindOf(err))

		_, err = svc.SendMessage(ctx, seekerSession, models.BookingThread("b-1"), strings.Repeat("x", 2001))
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMessagingService_SupportAutoReply(t *testing.T) {
	svc, mock, publisher, clk := newTestMessaging(t)
	responder := NewAutoResponder(svc, nil, clk, "owner-1", 2*time.Second)
	defer responder.Close()
	svc.SetAutoResponder(responder)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), nil, "support:seeker-1:owner-1", "seeker-1", "owner-1",
			"How do I clear my dues?", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := svc.SendMessage(context.Background(), seekerSession, models.SupportThread("seeker-1", "owner-1"), "How do I clear my dues?")
	require.NoError(t, err)
	assert.Equal(t, 1, responder.Pending())
	assert.Len(t, publisher.Events(realtime.TableMessages), 1)

	reply, _ := MatchAutoReply(DefaultAutoReplyRules, "dues")
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), nil, "support:seeker-1:owner-1", "owner-1", "seeker-1", reply, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	clk.Advance(2 * time.Second)

	require.Eventually(t, func() bool { return len(publisher.Events(realtime.TableMessages)) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, responder.Pending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessagingService_MarkThreadRead(t *testing.T) {
	ctx := context.Background()

	t.Run("flips unread messages for the reader", func(t *testing.T) {
		svc, mock, publisher, _ := newTestMessaging(t)
		expectBookingThread(mock, "b-1", models.BookingAccepted)
		mock.ExpectQuery("UPDATE messages SET is_read = true WHERE thread_key = \\$1 AND receiver_id = \\$2 AND is_read = false RETURNING").
			WithArgs("booking:b-1", "seeker-1").
			WillReturnRows(sqlmock.NewRows(messageCols).
				AddRow("m-1", "b-1", "booking:b-1", "provider-1", "seeker-1", "hi", true, testNow).
				AddRow("m-2", "b-1", "booking:b-1", "provider-1", "seeker-1", "there?", true, testNow.Add(time.Minute)))

		n, err := svc.MarkThreadRead(ctx, seekerSession, models.BookingThread("b-1"))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		events := publisher.Events(realtime.TableMessages)
		require.Len(t, events, 2)
		for _, ev := range events {
			assert.Equal(t, realtime.OpUpdate, ev.Operation)
			assert.True(t, ev.Row.(*models.Message).IsRead)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reading a closed thread is allowed", func(t *testing.T) {
		svc, mock, _, _ := newTestMessaging(t)
		expectBookingThread(mock, "b-1", models.BookingCancelled)
		mock.ExpectQuery("UPDATE messages SET is_read = true").
			WithArgs("booking:b-1", "provider-1").
			WillReturnRows(sqlmock.NewRows(messageCols))

		n, err := svc.MarkThreadRead(ctx, providerSession, models.BookingThread("b-1"))
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outsider", func(t *testing.T) {
		svc, mock, _, _ := newTestMessaging(t)
		expectBookingThread(mock, "b-1", models.BookingAccepted)

		_, err := svc.MarkThreadRead(ctx, &models.Session{AccountID: "x", Role: models.RoleSeeker}, models.BookingThread("b-1"))
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMessagingService_FetchThread(t *testing.T) {
	svc, mock, _, _ := newTestMessaging(t)
	expectBookingThread(mock, "b-1", models.BookingAccepted)
	mock.ExpectQuery("SELECT (.+) FROM messages WHERE thread_key = \\$1 ORDER BY created_at, id").
		WithArgs("booking:b-1").
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow("m-2", "b-1", "booking:b-1", "provider-1", "seeker-1", "second", false, testNow).
			AddRow("m-1", "b-1", "booking:b-1", "seeker-1", "provider-1", "first", true, testNow))

	msgs, err := svc.FetchThread(context.Background(), seekerSession, models.BookingThread("b-1"))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m-1", msgs[0].ID)
	require.NotNil(t, msgs[0].BookingID)
	assert.Equal(t, "b-1", *msgs[0].BookingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessagingService_ListThreadsFor(t *testing.T) {
	svc, mock, _, _ := newTestMessaging(t)
	mock.ExpectQuery("SELECT (.+) FROM messages WHERE sender_id = \\$1 OR receiver_id = \\$1").
		WithArgs("seeker-1").
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow("m-1", "b-1", "booking:b-1", "provider-1", "seeker-1", "welcome", false, testNow).
			AddRow("m-2", nil, "support:seeker-1:owner-1", "seeker-1", "owner-1", "help", false, testNow.Add(time.Hour)))

	inbox, err := svc.ListThreadsFor(context.Background(), seekerSession)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "owner-1", inbox[0].OtherID)
	assert.Equal(t, "support:seeker-1:owner-1", inbox[0].ThreadKey)
	assert.Equal(t, models.ThreadSupport, inbox[0].Threads[0].Kind)
	assert.Equal(t, 0, inbox[0].UnreadCount)
	assert.Equal(t, "provider-1", inbox[1].OtherID)
	assert.Equal(t, "b-1", inbox[1].Threads[0].BookingID)
	assert.Equal(t, 1, inbox[1].UnreadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarizeThreads(t *testing.T) {
	b1, b2 := "b-1", "b-2"
	at := func(min int) time.Time { return testNow.Add(time.Duration(min) * time.Minute) }
	msgs := []models.Message{
		{ID: "m-1", BookingID: &b1, ThreadKey: "booking:b-1", SenderID: "provider-1", ReceiverID: "seeker-1", Content: "a", CreatedAt: at(1)},
		{ID: "m-2", BookingID: &b1, ThreadKey: "booking:b-1", SenderID: "provider-1", ReceiverID: "seeker-1", Content: "b", CreatedAt: at(2)},
		{ID: "m-3", BookingID: &b2, ThreadKey: "booking:b-2", SenderID: "provider-1", ReceiverID: "seeker-1", Content: "c", CreatedAt: at(3)},
		{ID: "m-4", BookingID: &b1, ThreadKey: "booking:b-1", SenderID: "seeker-1", ReceiverID: "provider-1", Content: "d", CreatedAt: at(4)},
		{ID: "m-5", ThreadKey: "support:seeker-2:owner-1", SenderID: "seeker-2", ReceiverID: "owner-1", Content: "not mine", CreatedAt: at(9)},
	}

	t.Run("same counterpart in two bookings stays separate", func(t *testing.T) {
		summaries := SummarizeThreads("seeker-1", msgs)
		require.Len(t, summaries, 2)

		assert.Equal(t, "booking:b-1", summaries[0].ThreadKey)
		assert.Equal(t, "d", summaries[0].LastMessage)
		assert.Equal(t, at(4), summaries[0].LastMessageAt)
		assert.Equal(t, "provider-1", summaries[0].OtherID)
		assert.Equal(t, 2, summaries[0].UnreadCount)

		assert.Equal(t, "booking:b-2", summaries[1].ThreadKey)
		assert.Equal(t, 1, summaries[1].UnreadCount)
	})

	t.Run("reading one thread leaves the others unread", func(t *testing.T) {
		read := make([]models.Message, len(msgs))
		copy(read, msgs)
		for i := range read {
			if read[i].ThreadKey == "booking:b-1" && read[i].ReceiverID == "seeker-1" {
				read[i].IsRead = true
			}
		}

		summaries := SummarizeThreads("seeker-1", read)
		require.Len(t, summaries, 2)
		assert.Equal(t, 0, summaries[0].UnreadCount)
		assert.Equal(t, 1, summaries[1].UnreadCount)
	})

	t.Run("no messages", func(t *testing.T) {
		assert.Empty(t, SummarizeThreads("seeker-1", nil))
	})
}

func TestSummarizeInbox(t *testing.T) {
	b1, b2 := "b-1", "b-2"
	at := func(min int) time.Time { return testNow.Add(time.Duration(min) * time.Minute) }
	msgs := []models.Message{
		{ID: "m-1", BookingID: &b1, ThreadKey: "booking:b-1", SenderID: "provider-1", ReceiverID: "seeker-1", Content: "first room", CreatedAt: at(1)},
		{ID: "m-2", BookingID: &b2, ThreadKey: "booking:b-2", SenderID: "provider-1", ReceiverID: "seeker-1", Content: "second room", CreatedAt: at(2)},
		{ID: "m-3", BookingID: &b2, ThreadKey: "booking:b-2", SenderID: "provider-1", ReceiverID: "seeker-1", Content: "still there?", CreatedAt: at(3)},
		{ID: "m-4", ThreadKey: "support:seeker-1:owner-1", SenderID: "seeker-1", ReceiverID: "owner-1", Content: "help", CreatedAt: at(5)},
	}

	t.Run("two bookings with one provider share a row", func(t *testing.T) {
		inbox := SummarizeInbox("seeker-1", msgs)
		require.Len(t, inbox, 2)

		assert.Equal(t, "owner-1", inbox[0].OtherID)
		assert.Equal(t, "help", inbox[0].LastMessage)

		row := inbox[1]
		assert.Equal(t, "provider-1", row.OtherID)
		assert.Equal(t, "booking:b-2", row.ThreadKey)
		assert.Equal(t, "still there?", row.LastMessage)
		assert.Equal(t, at(3), row.LastMessageAt)
		assert.Equal(t, 3, row.UnreadCount)
		require.Len(t, row.Threads, 2)
		assert.Equal(t, "booking:b-2", row.Threads[0].ThreadKey)
		assert.Equal(t, 2, row.Threads[0].UnreadCount)
		assert.Equal(t, "booking:b-1", row.Threads[1].ThreadKey)
		assert.Equal(t, 1, row.Threads[1].UnreadCount)
	})

	t.Run("reading one booking thread leaves the other unread", func(t *testing.T) {
		read := make([]models.Message, len(msgs))
		copy(read, msgs)
		for i := range read {
			if read[i].ThreadKey == "booking:b-2" {
				read[i].IsRead = true
			}
		}

		row := SummarizeInbox("seeker-1", read)[1]
		assert.Equal(t, 1, row.UnreadCount)
		assert.Equal(t, 0, row.Threads[0].UnreadCount)
		assert.Equal(t, 1, row.Threads[1].UnreadCount)
	})

	t.Run("no messages", func(t *testing.T) {
		assert.Empty(t, SummarizeInbox("seeker-1", nil))
	})
}
