package server

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"github.com/vikinglords/vikinglords-server/internal/game"
	"github.com/vikinglords/vikinglords-server/internal/lobby"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// GameServiceName is the fully qualified gRPC service name.
const GameServiceName = "vikinglords.v1.GameService"

// GameServiceServer is the server API of GameService. Requests and responses
// are JSON-shaped structpb.Struct messages.
type GameServiceServer interface {
	CreateGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LeaveGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListGames(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Act(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReplay(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(GameServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GameServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + GameServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(GameServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// GameServiceDesc describes GameService for grpc.Server.RegisterService.
var GameServiceDesc = grpc.ServiceDesc{
	ServiceName: GameServiceName,
	HandlerType: (*GameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateGame", GameServiceServer.CreateGame),
		unaryHandler("JoinGame", GameServiceServer.JoinGame),
		unaryHandler("LeaveGame", GameServiceServer.LeaveGame),
		unaryHandler("StartGame", GameServiceServer.StartGame),
		unaryHandler("GetGame", GameServiceServer.GetGame),
		unaryHandler("ListGames", GameServiceServer.ListGames),
		unaryHandler("Act", GameServiceServer.Act),
		unaryHandler("GetReplay", GameServiceServer.GetReplay),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vikinglords/v1/game.proto",
}

// RegisterGameServiceServer registers srv on s.
func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameServiceServer) {
	s.RegisterService(&GameServiceDesc, srv)
}

// GameServiceClient calls GameService over a client connection.
type GameServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGameServiceClient wraps cc.
func NewGameServiceClient(cc grpc.ClientConnInterface) *GameServiceClient {
	return &GameServiceClient{cc: cc}
}

// Call invokes method with req.
func (c *GameServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+GameServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// gameServer implements GameServiceServer over the lobby and the engine.
type gameServer struct {
	lobby  *lobby.Manager
	engine *game.Engine
	logger *zap.Logger
}

// NewGameServer creates the gRPC game service.
func NewGameServer(l *lobby.Manager, engine *game.Engine, logger *zap.Logger) GameServiceServer {
	return &gameServer{lobby: l, engine: engine, logger: logger}
}

func (s *gameServer) CreateGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.lobby.Create(ctx, game.User{ID: id.UserID, Name: id.Name}, stringField(req, "name"))
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	return gameResponse(g)
}

func (s *gameServer) JoinGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, gameID, err := identityAndGame(ctx, req)
	if err != nil {
		return nil, err
	}
	g, err := s.lobby.Join(ctx, gameID, game.User{ID: id.UserID, Name: id.Name})
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	return gameResponse(g)
}

func (s *gameServer) LeaveGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, gameID, err := identityAndGame(ctx, req)
	if err != nil {
		return nil, err
	}
	g, err := s.lobby.Leave(ctx, gameID, id.UserID)
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	return gameResponse(g)
}

func (s *gameServer) StartGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, gameID, err := identityAndGame(ctx, req)
	if err != nil {
		return nil, err
	}
	g, err := s.lobby.Start(ctx, gameID, id.UserID)
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	return gameResponse(g)
}

func (s *gameServer) GetGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, gameID, err := identityAndGame(ctx, req)
	if err != nil {
		return nil, err
	}
	g, err := s.engine.GetGame(ctx, gameID)
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	return gameResponse(g)
}

// ListGames lists open games, or the caller's games when "mine" is true.
func (s *gameServer) ListGames(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	limit := int(numberField(req, "limit"))

	var games []*game.Game
	if boolField(req, "mine") {
		games, err = s.lobby.ListForUser(ctx, id.UserID, limit)
	} else {
		games, err = s.lobby.ListOpen(ctx, id.UserID, limit)
	}
	if err != nil {
		return nil, apperrors.HandleError(err)
	}

	items := make([]any, len(games))
	for i, g := range games {
		items[i] = gameSummary(g)
	}
	resp, err := structpb.NewStruct(map[string]any{"games": items})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return resp, nil
}

// Act applies one action as the caller. The request carries "gameId" and an
// "action" object shaped like game.Action; its userId is ignored.
func (s *gameServer) Act(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, gameID, err := identityAndGame(ctx, req)
	if err != nil {
		return nil, err
	}
	actionField, ok := req.GetFields()["action"]
	if !ok || actionField.GetStructValue() == nil {
		return nil, status.Error(codes.InvalidArgument, "action is required")
	}
	action, err := decodeAction(actionField.GetStructValue().AsMap())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid action: %v", err)
	}
	action.UserID = id.UserID

	g, err := s.engine.ProcessAction(ctx, gameID, action)
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	return gameResponse(g)
}

// GetReplay returns one recorded step of a game as {"game", "index",
// "steps"}. Step 0 is the started board.
func (s *gameServer) GetReplay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, gameID, err := identityAndGame(ctx, req)
	if err != nil {
		return nil, err
	}
	index := int(numberField(req, "index"))

	step, steps, err := s.engine.ReplayStep(ctx, gameID, id.UserID, index)
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	doc, err := gameDocument(step)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "render replay step: %v", err)
	}
	resp, err := structpb.NewStruct(map[string]any{"game": doc, "index": index, "steps": steps})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return resp, nil
}

func decodeAction(fields map[string]any) (game.Action, error) {
	var a game.Action
	data, err := json.Marshal(fields)
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, err
	}
	if !game.KnownAction(a.Type) {
		return a, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown action %q", a.Type)
	}
	return a, nil
}

func gameResponse(g *game.Game) (*structpb.Struct, error) {
	doc, err := gameDocument(g)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "render game: %v", err)
	}
	resp, err := structpb.NewStruct(map[string]any{"game": doc})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return resp, nil
}

func requireIdentity(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, status.Error(codes.Unauthenticated, "caller identity is required")
	}
	return id, nil
}

func identityAndGame(ctx context.Context, req *structpb.Struct) (Identity, string, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return Identity{}, "", err
	}
	gameID := stringField(req, "gameId")
	if gameID == "" {
		return Identity{}, "", status.Error(codes.InvalidArgument, "gameId is required")
	}
	return id, gameID, nil
}

func stringField(req *structpb.Struct, key string) string {
	return strings.TrimSpace(req.GetFields()[key].GetStringValue())
}

func numberField(req *structpb.Struct, key string) float64 {
	return req.GetFields()[key].GetNumberValue()
}

func boolField(req *structpb.Struct, key string) bool {
	return req.GetFields()[key].GetBoolValue()
}
