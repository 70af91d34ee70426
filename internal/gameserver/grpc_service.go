package gameserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/party"
	"github.com/cory-johannsen/realm/internal/game/session"
)

// GameServiceName is the fully qualified gRPC service name.
const GameServiceName = "realm.v1.GameService"

// Client operations carried in the "op" field of a request.
const (
	OpJoin        = "join"
	OpMove        = "move"
	OpAttack      = "attack"
	OpCast        = "cast"
	OpUse         = "use"
	OpExamine     = "examine"
	OpPartyCreate = "party_create"
	OpPartyJoin   = "party_join"
	OpPartyLeave  = "party_leave"
	OpWithdraw    = "withdraw"
	OpQuit        = "quit"
)

// Reply kinds sent in answer to a request. Pushed notices use session.Kind.
const (
	KindReply = "reply"
	KindError = "error"
)

var (
	// errQuit is returned by dispatch to stop the command loop cleanly.
	errQuit      = errors.New("quit")
	errUnknownOp = errors.New("unknown op")
)

// SessionStream is the server side of the bidirectional Session RPC.
type SessionStream = grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]

// SessionClient is the client side of the bidirectional Session RPC.
type SessionClient = grpc.BidiStreamingClient[structpb.Struct, structpb.Struct]

// GameService is the server API for the realm game service.
type GameService interface {
	Session(SessionStream) error
}

var gameServiceDesc = grpc.ServiceDesc{
	ServiceName: GameServiceName,
	HandlerType: (*GameService)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Session",
			Handler:       sessionHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(GameService).Session(&grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// RegisterGameServiceServer registers srv on s.
func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameService) {
	s.RegisterService(&gameServiceDesc, srv)
}

// OpenSession starts a Session stream on cc.
func OpenSession(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (SessionClient, error) {
	stream, err := cc.NewStream(ctx, &gameServiceDesc.Streams[0], "/"+GameServiceName+"/Session", opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}, nil
}

// PooledWithdrawer credits a party member's pooled experience.
type PooledWithdrawer interface {
	WithdrawPooled(ctx context.Context, userID string) (int, error)
}

// GameServiceServer exposes the combat engine over a bidirectional stream.
// Every request and reply is a protobuf Struct; pushed notices share the
// stream with replies.
type GameServiceServer struct {
	sessions *session.Manager
	combat   *CombatHandler
	parties  *party.Registry
	pooled   PooledWithdrawer
	chars    CharacterStore
	npcs     *npc.Manager
	blocker  inventory.Blocker
	logger   *zap.Logger
}

// NewGameServiceServer creates a GameServiceServer.
//
// Precondition: every argument must be non-nil.
func NewGameServiceServer(
	sessions *session.Manager,
	handler *CombatHandler,
	parties *party.Registry,
	pooled PooledWithdrawer,
	chars CharacterStore,
	npcs *npc.Manager,
	blocker inventory.Blocker,
	logger *zap.Logger,
) *GameServiceServer {
	return &GameServiceServer{
		sessions: sessions,
		combat:   handler,
		parties:  parties,
		pooled:   pooled,
		chars:    chars,
		npcs:     npcs,
		blocker:  blocker,
		logger:   logger,
	}
}

// Session implements the bidirectional streaming RPC.
// Flow:
//  1. Wait for a join request naming a stored character and a free tile
//  2. Register the player session and mark any party membership online
//  3. Forward pushed notices to the stream
//  4. Dispatch requests until quit or disconnect
//  5. On exit: mark the membership offline and remove the session
func (s *GameServiceServer) Session(stream SessionStream) error {
	first, err := stream.Recv()
	if err != nil {
		return fmt.Errorf("receiving join request: %w", err)
	}
	if op := stringField(first, "op"); op != OpJoin {
		return fmt.Errorf("first message must be %q, got %q", OpJoin, op)
	}

	out := &syncStream{stream: stream}
	uid, sess, err := s.join(stream.Context(), first)
	if err != nil {
		_ = out.Send(errorReply(first, err))
		return nil
	}
	defer s.cleanupPlayer(uid)

	if err := out.Send(reply(first, map[string]any{"uid": uid, "name": sess.Name})); err != nil {
		return fmt.Errorf("sending join reply: %w", err)
	}

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.forwardEvents(ctx, sess.Entity, out)
	}()

	err = s.commandLoop(ctx, uid, stream, out)

	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *GameServiceServer) join(ctx context.Context, msg *structpb.Struct) (string, *session.PlayerSession, error) {
	uid := stringField(msg, "uid")
	if uid == "" {
		return "", nil, errors.New("join requires a uid")
	}
	stats, err := s.chars.LoadStats(ctx, uid)
	if err != nil {
		return "", nil, fmt.Errorf("loading character %s: %w", uid, err)
	}
	pos := positionField(msg)
	if s.blocker.Blocked(pos.MapID, pos.X, pos.Y) {
		return "", nil, fmt.Errorf("tile %d:%d,%d is blocked", pos.MapID, pos.X, pos.Y)
	}
	name := stringField(msg, "name")
	if name == "" {
		name = stats.Name
	}
	sess, err := s.sessions.AddPlayer(uid, name, pos)
	if err != nil {
		return "", nil, fmt.Errorf("adding player: %w", err)
	}
	if err := s.parties.SetOnline(ctx, uid, true); err != nil && !errors.Is(err, party.ErrNotFound) {
		s.logger.Warn("marking party member online", zap.String("uid", uid), zap.Error(err))
	}
	s.logger.Info("player joined",
		zap.String("uid", uid),
		zap.String("name", name),
		zap.Int("map", pos.MapID),
	)
	return uid, sess, nil
}

// commandLoop processes requests until the stream ends or the player quits.
func (s *GameServiceServer) commandLoop(ctx context.Context, uid string, stream SessionStream, out *syncStream) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		if err != nil {
			return fmt.Errorf("receiving message: %w", err)
		}

		fields, err := s.dispatch(ctx, uid, msg)
		if errors.Is(err, errQuit) {
			_ = out.Send(reply(msg, nil))
			return nil
		}
		if err != nil {
			if sendErr := out.Send(errorReply(msg, err)); sendErr != nil {
				return fmt.Errorf("sending error: %w", sendErr)
			}
			continue
		}
		if err := out.Send(reply(msg, fields)); err != nil {
			return fmt.Errorf("sending response: %w", err)
		}
	}
}

// dispatch routes a request to the engine by its op.
func (s *GameServiceServer) dispatch(ctx context.Context, uid string, msg *structpb.Struct) (map[string]any, error) {
	switch op := stringField(msg, "op"); op {
	case OpMove:
		return s.handleMove(uid, msg)
	case OpAttack:
		return s.handleAttack(ctx, uid, msg)
	case OpCast:
		return s.handleCast(ctx, uid, msg)
	case OpUse:
		return s.handleUse(ctx, uid, msg)
	case OpExamine:
		return s.handleExamine(msg)
	case OpPartyCreate:
		return s.handlePartyCreate(ctx, uid, msg)
	case OpPartyJoin:
		return s.handlePartyJoin(ctx, uid, msg)
	case OpPartyLeave:
		return s.handlePartyLeave(ctx, uid)
	case OpWithdraw:
		return s.handleWithdraw(ctx, uid)
	case OpQuit:
		return nil, errQuit
	default:
		return nil, fmt.Errorf("%w %q", errUnknownOp, op)
	}
}

func (s *GameServiceServer) handleMove(uid string, msg *structpb.Struct) (map[string]any, error) {
	pos := positionField(msg)
	if s.blocker.Blocked(pos.MapID, pos.X, pos.Y) {
		return nil, fmt.Errorf("tile %d:%d,%d is blocked", pos.MapID, pos.X, pos.Y)
	}
	if _, err := s.sessions.MovePlayer(uid, pos); err != nil {
		return nil, err
	}
	return map[string]any{"map": pos.MapID, "x": pos.X, "y": pos.Y}, nil
}

func (s *GameServiceServer) handleAttack(ctx context.Context, uid string, msg *structpb.Struct) (map[string]any, error) {
	out, err := s.combat.Attack(ctx, uid, stringField(msg, "target"))
	if err != nil {
		return nil, err
	}
	return outcomeFields(out), nil
}

// handleCast applies spell damage from uid to one NPC or player.
func (s *GameServiceServer) handleCast(ctx context.Context, uid string, msg *structpb.Struct) (map[string]any, error) {
	out, err := s.combat.ApplyDamage(ctx, DamageRequest{
		SourceID:     uid,
		SourceName:   stringField(msg, "spell"),
		TargetNpc:    stringField(msg, "target_npc"),
		TargetPlayer: stringField(msg, "target_player"),
		Amount:       intField(msg, "amount"),
		Source:       combat.SourceSpell,
	})
	if err != nil {
		return nil, err
	}
	return outcomeFields(out), nil
}

// handleUse applies an item or spell effect to uid, or to "target" when set.
func (s *GameServiceServer) handleUse(ctx context.Context, uid string, msg *structpb.Struct) (map[string]any, error) {
	target := stringField(msg, "target")
	if target == "" {
		target = uid
	}
	err := s.combat.ApplyEffect(ctx, target, Effect{
		Kind:      EffectKind(stringField(msg, "effect")),
		Amount:    intField(msg, "amount"),
		Attribute: character.Attribute(stringField(msg, "attribute")),
		Duration:  time.Duration(intField(msg, "duration_ms")) * time.Millisecond,
		Source:    stringField(msg, "item"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"target": target}, nil
}

func (s *GameServiceServer) handleExamine(msg *structpb.Struct) (map[string]any, error) {
	id := stringField(msg, "target")
	inst, ok := s.npcs.Get(id)
	if !ok || !inst.Alive() {
		return nil, fmt.Errorf("examining %s: %w", id, combat.ErrTargetGone)
	}
	pos := inst.Position()
	return map[string]any{
		"object_id": inst.ID,
		"name":      inst.Name,
		"level":     inst.Level,
		"hostile":   inst.Hostile,
		"condition": inst.HealthDescription(),
		"x":         pos.X,
		"y":         pos.Y,
	}, nil
}

func (s *GameServiceServer) handlePartyCreate(ctx context.Context, uid string, msg *structpb.Struct) (map[string]any, error) {
	other := stringField(msg, "member")
	if !s.sessions.Online(other) {
		return nil, fmt.Errorf("inviting %s: %w", other, character.ErrNotFound)
	}
	leader, err := s.member(ctx, uid)
	if err != nil {
		return nil, err
	}
	member, err := s.member(ctx, other)
	if err != nil {
		return nil, err
	}
	p, err := s.parties.Create(ctx, leader, member)
	if err != nil {
		return nil, err
	}
	s.sessions.Notify(other, session.Message("%s formed a party with you.", leader.Username))
	return map[string]any{"party": p.ID, "size": p.Size()}, nil
}

func (s *GameServiceServer) handlePartyJoin(ctx context.Context, uid string, msg *structpb.Struct) (map[string]any, error) {
	m, err := s.member(ctx, uid)
	if err != nil {
		return nil, err
	}
	id := stringField(msg, "party")
	if err := s.parties.Join(ctx, id, m); err != nil {
		return nil, err
	}
	if p, ok := s.parties.GetPartyOf(uid); ok {
		for _, other := range p.Snapshot().Members {
			if other.UserID != uid {
				s.sessions.Notify(other.UserID, session.Message("%s joined the party.", m.Username))
			}
		}
	}
	return map[string]any{"party": id}, nil
}

func (s *GameServiceServer) handlePartyLeave(ctx context.Context, uid string) (map[string]any, error) {
	p, ok := s.parties.GetPartyOf(uid)
	if !ok {
		return nil, fmt.Errorf("leaving party as %s: %w", uid, party.ErrNotFound)
	}
	members := p.Snapshot().Members
	disbanded, err := s.parties.Leave(ctx, uid)
	if err != nil {
		return nil, err
	}
	name := uid
	for _, m := range members {
		if m.UserID == uid {
			name = m.Username
		}
	}
	for _, other := range members {
		if other.UserID == uid {
			continue
		}
		if disbanded {
			s.sessions.Notify(other.UserID, session.Message("Your party has been disbanded."))
		} else {
			s.sessions.Notify(other.UserID, session.Message("%s left the party.", name))
		}
	}
	return map[string]any{"disbanded": disbanded}, nil
}

func (s *GameServiceServer) handleWithdraw(ctx context.Context, uid string) (map[string]any, error) {
	amount, err := s.pooled.WithdrawPooled(ctx, uid)
	if err != nil {
		return nil, err
	}
	return map[string]any{"experience": amount}, nil
}

// member builds a party member from the stored character and live session.
func (s *GameServiceServer) member(ctx context.Context, uid string) (party.Member, error) {
	stats, err := s.chars.LoadStats(ctx, uid)
	if err != nil {
		return party.Member{}, fmt.Errorf("loading character %s: %w", uid, err)
	}
	name := stats.Name
	if sess, ok := s.sessions.GetPlayer(uid); ok {
		name = sess.Name
	}
	return party.Member{UserID: uid, Username: name, Level: stats.Level, Online: s.sessions.Online(uid)}, nil
}

// forwardEvents reads frames from the player's BridgeEntity and sends them
// on the stream until ctx is done or the entity closes.
func (s *GameServiceServer) forwardEvents(ctx context.Context, entity *session.BridgeEntity, out *syncStream) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-entity.Events():
			if !ok {
				return
			}
			var evt structpb.Struct
			if err := proto.Unmarshal(frame, &evt); err != nil {
				s.logger.Error("unmarshaling notice frame", zap.Error(err))
				continue
			}
			if err := out.Send(&evt); err != nil {
				s.logger.Debug("forward event send failed", zap.Error(err))
				return
			}
		}
	}
}

// cleanupPlayer marks any party membership offline and removes the session.
func (s *GameServiceServer) cleanupPlayer(uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.parties.SetOnline(ctx, uid, false); err != nil && !errors.Is(err, party.ErrNotFound) {
		s.logger.Warn("marking party member offline", zap.String("uid", uid), zap.Error(err))
	}
	if err := s.sessions.RemovePlayer(uid); err != nil {
		s.logger.Warn("removing player on cleanup", zap.String("uid", uid), zap.Error(err))
	}
	s.logger.Info("player disconnected", zap.String("uid", uid))
}

// syncStream serializes Send calls from the command loop and the notice
// forwarder; a gRPC stream allows only one concurrent sender.
type syncStream struct {
	mu     sync.Mutex
	stream SessionStream
}

func (s *syncStream) Send(m *structpb.Struct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.Send(m)
}

// reply builds the answer to req carrying fields.
func reply(req *structpb.Struct, fields map[string]any) *structpb.Struct {
	m := map[string]any{"kind": KindReply, "op": stringField(req, "op")}
	if id := stringField(req, "request_id"); id != "" {
		m["request_id"] = id
	}
	if len(fields) > 0 {
		m["fields"] = fields
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return errorReply(req, err)
	}
	return out
}

// errorReply builds an error answer to req.
func errorReply(req *structpb.Struct, err error) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"kind": structpb.NewStringValue(KindError),
		"op":   structpb.NewStringValue(stringField(req, "op")),
		"code": structpb.NewStringValue(errorCode(err)),
		"text": structpb.NewStringValue(err.Error()),
	}
	if id := stringField(req, "request_id"); id != "" {
		fields["request_id"] = structpb.NewStringValue(id)
	}
	return &structpb.Struct{Fields: fields}
}

// errorCode maps engine sentinel errors to stable client codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, combat.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, combat.ErrTargetGone):
		return "target_gone"
	case errors.Is(err, combat.ErrTargetNotAttackable):
		return "not_attackable"
	case errors.Is(err, combat.ErrAttackerIncapacitated):
		return "incapacitated"
	case errors.Is(err, combat.ErrAttackerNotFound),
		errors.Is(err, combat.ErrTargetNotFound),
		errors.Is(err, character.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnknownEffect):
		return "unknown_effect"
	case errors.Is(err, party.ErrFull):
		return "party_full"
	case errors.Is(err, party.ErrAlreadyInParty):
		return "already_in_party"
	case errors.Is(err, party.ErrNotFound):
		return "no_party"
	case errors.Is(err, errUnknownOp):
		return "unknown_op"
	default:
		return "internal"
	}
}

func stringField(msg *structpb.Struct, key string) string {
	return msg.GetFields()[key].GetStringValue()
}

func intField(msg *structpb.Struct, key string) int {
	return int(msg.GetFields()[key].GetNumberValue())
}

func positionField(msg *structpb.Struct) combat.Position {
	return combat.Position{MapID: intField(msg, "map"), X: intField(msg, "x"), Y: intField(msg, "y")}
}

func outcomeFields(o combat.AttackOutcome) map[string]any {
	return map[string]any{
		"damage":        o.Damage,
		"critical":      o.Critical,
		"dodged":        o.Dodged,
		"target_died":   o.TargetDied,
		"target_health": o.TargetHealth,
	}
}
