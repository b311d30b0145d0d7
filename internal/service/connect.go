package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Fully-qualified service names.
const (
	ChatServiceName    = "mamachef.v1.ChatService"
	TrackerServiceName = "mamachef.v1.TrackerService"
)

// Procedure paths, in the form /package.Service/Method.
const (
	ChatServiceStartSessionProcedure    = "/mamachef.v1.ChatService/StartSession"
	ChatServiceSendMessageProcedure     = "/mamachef.v1.ChatService/SendMessage"
	ChatServiceQuickActionProcedure     = "/mamachef.v1.ChatService/QuickAction"
	ChatServiceGetConversationProcedure = "/mamachef.v1.ChatService/GetConversation"
	ChatServiceUpdateProfileProcedure   = "/mamachef.v1.ChatService/UpdateProfile"
	ChatServiceSubscribeProcedure       = "/mamachef.v1.ChatService/Subscribe"
	ChatServiceEditImageProcedure       = "/mamachef.v1.ChatService/EditImage"
	ChatServiceAnimatePhotoProcedure    = "/mamachef.v1.ChatService/AnimatePhoto"

	TrackerServiceAnalyzeImageProcedure    = "/mamachef.v1.TrackerService/AnalyzeImage"
	TrackerServiceSetPortionProcedure      = "/mamachef.v1.TrackerService/SetPortion"
	TrackerServiceSetIncludedProcedure     = "/mamachef.v1.TrackerService/SetIncluded"
	TrackerServiceGetBatchProcedure        = "/mamachef.v1.TrackerService/GetBatch"
	TrackerServiceSaveMealProcedure        = "/mamachef.v1.TrackerService/SaveMeal"
	TrackerServiceDeleteMealProcedure      = "/mamachef.v1.TrackerService/DeleteMeal"
	TrackerServiceListMealsProcedure       = "/mamachef.v1.TrackerService/ListMeals"
	TrackerServiceGetDailySummaryProcedure = "/mamachef.v1.TrackerService/GetDailySummary"
)

// NewChatServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewChatServiceHandler(svc *ChatService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(ChatServiceStartSessionProcedure, connect.NewUnaryHandler(ChatServiceStartSessionProcedure, svc.StartSession, opts...))
	mux.Handle(ChatServiceSendMessageProcedure, connect.NewUnaryHandler(ChatServiceSendMessageProcedure, svc.SendMessage, opts...))
	mux.Handle(ChatServiceQuickActionProcedure, connect.NewUnaryHandler(ChatServiceQuickActionProcedure, svc.QuickAction, opts...))
	mux.Handle(ChatServiceGetConversationProcedure, connect.NewUnaryHandler(ChatServiceGetConversationProcedure, svc.GetConversation, opts...))
	mux.Handle(ChatServiceUpdateProfileProcedure, connect.NewUnaryHandler(ChatServiceUpdateProfileProcedure, svc.UpdateProfile, opts...))
	mux.Handle(ChatServiceSubscribeProcedure, connect.NewUnaryHandler(ChatServiceSubscribeProcedure, svc.Subscribe, opts...))
	mux.Handle(ChatServiceEditImageProcedure, connect.NewUnaryHandler(ChatServiceEditImageProcedure, svc.EditImage, opts...))
	mux.Handle(ChatServiceAnimatePhotoProcedure, connect.NewUnaryHandler(ChatServiceAnimatePhotoProcedure, svc.AnimatePhoto, opts...))
	return "/" + ChatServiceName + "/", mux
}

// ChatServiceClient calls ChatService over Connect.
type ChatServiceClient struct {
	startSession    *connect.Client[StartSessionRequest, StartSessionResponse]
	sendMessage     *connect.Client[SendMessageRequest, SendMessageResponse]
	quickAction     *connect.Client[QuickActionRequest, SendMessageResponse]
	getConversation *connect.Client[GetConversationRequest, GetConversationResponse]
	updateProfile   *connect.Client[UpdateProfileRequest, ProfileResponse]
	subscribe       *connect.Client[SubscribeRequest, SubscribeResponse]
	editImage       *connect.Client[MediaRequest, SendMessageResponse]
	animatePhoto    *connect.Client[MediaRequest, SendMessageResponse]
}

// NewChatServiceClient constructs a client. baseURL is the server root, e.g.
// http://localhost:8080.
func NewChatServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ChatServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{ClientJSON()}, opts...)
	return &ChatServiceClient{
		startSession:    connect.NewClient[StartSessionRequest, StartSessionResponse](httpClient, baseURL+ChatServiceStartSessionProcedure, opts...),
		sendMessage:     connect.NewClient[SendMessageRequest, SendMessageResponse](httpClient, baseURL+ChatServiceSendMessageProcedure, opts...),
		quickAction:     connect.NewClient[QuickActionRequest, SendMessageResponse](httpClient, baseURL+ChatServiceQuickActionProcedure, opts...),
		getConversation: connect.NewClient[GetConversationRequest, GetConversationResponse](httpClient, baseURL+ChatServiceGetConversationProcedure, opts...),
		updateProfile:   connect.NewClient[UpdateProfileRequest, ProfileResponse](httpClient, baseURL+ChatServiceUpdateProfileProcedure, opts...),
		subscribe:       connect.NewClient[SubscribeRequest, SubscribeResponse](httpClient, baseURL+ChatServiceSubscribeProcedure, opts...),
		editImage:       connect.NewClient[MediaRequest, SendMessageResponse](httpClient, baseURL+ChatServiceEditImageProcedure, opts...),
		animatePhoto:    connect.NewClient[MediaRequest, SendMessageResponse](httpClient, baseURL+ChatServiceAnimatePhotoProcedure, opts...),
	}
}

func (c *ChatServiceClient) StartSession(ctx context.Context, req *connect.Request[StartSessionRequest]) (*connect.Response[StartSessionResponse], error) {
	return c.startSession.CallUnary(ctx, req)
}

func (c *ChatServiceClient) SendMessage(ctx context.Context, req *connect.Request[SendMessageRequest]) (*connect.Response[SendMessageResponse], error) {
	return c.sendMessage.CallUnary(ctx, req)
}

func (c *ChatServiceClient) QuickAction(ctx context.Context, req *connect.Request[QuickActionRequest]) (*connect.Response[SendMessageResponse], error) {
	return c.quickAction.CallUnary(ctx, req)
}

func (c *ChatServiceClient) GetConversation(ctx context.Context, req *connect.Request[GetConversationRequest]) (*connect.Response[GetConversationResponse], error) {
	return c.getConversation.CallUnary(ctx, req)
}

func (c *ChatServiceClient) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[ProfileResponse], error) {
	return c.updateProfile.CallUnary(ctx, req)
}

func (c *ChatServiceClient) Subscribe(ctx context.Context, req *connect.Request[SubscribeRequest]) (*connect.Response[SubscribeResponse], error) {
	return c.subscribe.CallUnary(ctx, req)
}

func (c *ChatServiceClient) EditImage(ctx context.Context, req *connect.Request[MediaRequest]) (*connect.Response[SendMessageResponse], error) {
	return c.editImage.CallUnary(ctx, req)
}

func (c *ChatServiceClient) AnimatePhoto(ctx context.Context, req *connect.Request[MediaRequest]) (*connect.Response[SendMessageResponse], error) {
	return c.animatePhoto.CallUnary(ctx, req)
}

// NewTrackerServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewTrackerServiceHandler(svc *TrackerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(TrackerServiceAnalyzeImageProcedure, connect.NewUnaryHandler(TrackerServiceAnalyzeImageProcedure, svc.AnalyzeImage, opts...))
	mux.Handle(TrackerServiceSetPortionProcedure, connect.NewUnaryHandler(TrackerServiceSetPortionProcedure, svc.SetPortion, opts...))
	mux.Handle(TrackerServiceSetIncludedProcedure, connect.NewUnaryHandler(TrackerServiceSetIncludedProcedure, svc.SetIncluded, opts...))
	mux.Handle(TrackerServiceGetBatchProcedure, connect.NewUnaryHandler(TrackerServiceGetBatchProcedure, svc.GetBatch, opts...))
	mux.Handle(TrackerServiceSaveMealProcedure, connect.NewUnaryHandler(TrackerServiceSaveMealProcedure, svc.SaveMeal, opts...))
	mux.Handle(TrackerServiceDeleteMealProcedure, connect.NewUnaryHandler(TrackerServiceDeleteMealProcedure, svc.DeleteMeal, opts...))
	mux.Handle(TrackerServiceListMealsProcedure, connect.NewUnaryHandler(TrackerServiceListMealsProcedure, svc.ListMeals, opts...))
	mux.Handle(TrackerServiceGetDailySummaryProcedure, connect.NewUnaryHandler(TrackerServiceGetDailySummaryProcedure, svc.GetDailySummary, opts...))
	return "/" + TrackerServiceName + "/", mux
}

// TrackerServiceClient calls TrackerService over Connect.
type TrackerServiceClient struct {
	analyzeImage    *connect.Client[AnalyzeImageRequest, BatchResponse]
	setPortion      *connect.Client[SetPortionRequest, BatchResponse]
	setIncluded     *connect.Client[SetIncludedRequest, BatchResponse]
	getBatch        *connect.Client[GetBatchRequest, BatchResponse]
	saveMeal        *connect.Client[SaveMealRequest, SaveMealResponse]
	deleteMeal      *connect.Client[DeleteMealRequest, DeleteMealResponse]
	listMeals       *connect.Client[ListMealsRequest, ListMealsResponse]
	getDailySummary *connect.Client[GetDailySummaryRequest, GetDailySummaryResponse]
}

// NewTrackerServiceClient constructs a client. baseURL is the server root, e.g.
// http://localhost:8080.
func NewTrackerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TrackerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{ClientJSON()}, opts...)
	return &TrackerServiceClient{
		analyzeImage:    connect.NewClient[AnalyzeImageRequest, BatchResponse](httpClient, baseURL+TrackerServiceAnalyzeImageProcedure, opts...),
		setPortion:      connect.NewClient[SetPortionRequest, BatchResponse](httpClient, baseURL+TrackerServiceSetPortionProcedure, opts...),
		setIncluded:     connect.NewClient[SetIncludedRequest, BatchResponse](httpClient, baseURL+TrackerServiceSetIncludedProcedure, opts...),
		getBatch:        connect.NewClient[GetBatchRequest, BatchResponse](httpClient, baseURL+TrackerServiceGetBatchProcedure, opts...),
		saveMeal:        connect.NewClient[SaveMealRequest, SaveMealResponse](httpClient, baseURL+TrackerServiceSaveMealProcedure, opts...),
		deleteMeal:      connect.NewClient[DeleteMealRequest, DeleteMealResponse](httpClient, baseURL+TrackerServiceDeleteMealProcedure, opts...),
		listMeals:       connect.NewClient[ListMealsRequest, ListMealsResponse](httpClient, baseURL+TrackerServiceListMealsProcedure, opts...),
		getDailySummary: connect.NewClient[GetDailySummaryRequest, GetDailySummaryResponse](httpClient, baseURL+TrackerServiceGetDailySummaryProcedure, opts...),
	}
}

func (c *TrackerServiceClient) AnalyzeImage(ctx context.Context, req *connect.Request[AnalyzeImageRequest]) (*connect.Response[BatchResponse], error) {
	return c.analyzeImage.CallUnary(ctx, req)
}

func (c *TrackerServiceClient) SetPortion(ctx context.Context, req *connect.Request[SetPortionRequest]) (*connect.Response[BatchResponse], error) {
	return c.setPortion.CallUnary(ctx, req)
}

func (c *TrackerServiceClient) SetIncluded(ctx context.Context, req *connect.Request[SetIncludedRequest]) (*connect.Response[BatchResponse], error) {
	return c.setIncluded.CallUnary(ctx, req)
}

func (c *TrackerServiceClient) GetBatch(ctx context.Context, req *connect.Request[GetBatchRequest]) (*connect.Response[BatchResponse], error) {
	return c.getBatch.CallUnary(ctx, req)
}

func (c *TrackerServiceClient) SaveMeal(ctx context.Context, req *connect.Request[SaveMealRequest]) (*connect.Response[SaveMealResponse], error) {
	return c.saveMeal.CallUnary(ctx, req)
}

func (c *TrackerServiceClient) DeleteMeal(ctx context.Context, req *connect.Request[DeleteMealRequest]) (*connect.Response[DeleteMealResponse], error) {
	return c.deleteMeal.CallUnary(ctx, req)
}

func (c *TrackerServiceClient) ListMeals(ctx context.Context, req *connect.Request[ListMealsRequest]) (*connect.Response[ListMealsResponse], error) {
	return c.listMeals.CallUnary(ctx, req)
}

func (c *TrackerServiceClient) GetDailySummary(ctx context.Context, req *connect.Request[GetDailySummaryRequest]) (*connect.Response[GetDailySummaryResponse], error) {
	return c.getDailySummary.CallUnary(ctx, req)
}
