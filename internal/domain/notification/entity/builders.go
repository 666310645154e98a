package entity

import (
	"fmt"
	"strconv"
)

// Welcome builds the onboarding notification of a new user
func Welcome(userID int64) *Notification {
	return &Notification{
		UserID:  userID,
		Type:    TypeWelcome,
		Title:   "¡Bienvenido a ImpulsaCol!",
		Message: "Te damos la bienvenida a nuestra plataforma de emprendimientos. ¡Explora y conecta con otros emprendedores!",
		Data: NavigationPayload{
			Redirect: Redirect{RedirectTo: RedirectHome, EntityID: userID},
		},
	}
}

// Favorite builds the notification sent to an item owner when someone favorites the item
func Favorite(recipientID, actorID int64, actorName string, itemType ItemType, itemID int64, actorImage string) *Notification {
	return &Notification{
		UserID:  recipientID,
		Type:    TypeFavorite,
		Title:   "Nuevo favorito",
		Message: fmt.Sprintf("%s agregó tu %s a favoritos", actorName, itemType.Noun()),
		Data: FavoritePayload{
			ItemID:     itemID,
			ItemType:   itemType,
			ActorID:    actorID,
			ActorName:  actorName,
			ActorImage: actorImage,
			Redirect:   Redirect{RedirectTo: itemType.DetailRoute(), EntityID: itemID},
		},
	}
}

// NewMessage builds the notification sent to the recipient of a chat message
func NewMessage(recipientID, senderID int64, senderName string, conversationID int64, senderImage string) *Notification {
	return &Notification{
		UserID:  recipientID,
		Type:    TypeMessage,
		Title:   "Nuevo mensaje",
		Message: fmt.Sprintf("%s te ha enviado un mensaje", senderName),
		Data: MessagePayload{
			ChatID:      conversationID,
			SenderID:    senderID,
			SenderName:  senderName,
			SenderImage: senderImage,
			Redirect:    Redirect{RedirectTo: RedirectChatDetail, EntityID: conversationID},
		},
	}
}

// Rating builds the notification sent to an item owner when the item is rated
func Rating(recipientID, reviewerID int64, reviewerName string, rating float64, itemType ItemType, itemID int64) *Notification {
	suffix := "s"
	if rating == 1 {
		suffix = ""
	}

	return &Notification{
		UserID: recipientID,
		Type:   TypeRating,
		Title:  "Nueva calificación",
		Message: fmt.Sprintf("%s calificó tu %s con %s estrella%s",
			reviewerName, itemType.Noun(), strconv.FormatFloat(rating, 'f', -1, 64), suffix),
		Data: RatingPayload{
			Rating:       rating,
			ReviewerID:   reviewerID,
			ReviewerName: reviewerName,
			ItemID:       itemID,
			ItemType:     itemType,
			Redirect:     Redirect{RedirectTo: itemType.DetailRoute(), EntityID: itemID},
		},
	}
}
